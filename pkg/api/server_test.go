package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipeed/cinebot/pkg/bus"
	"github.com/sipeed/cinebot/pkg/component"
	"github.com/sipeed/cinebot/pkg/config"
	"github.com/sipeed/cinebot/pkg/conversation"
	"github.com/sipeed/cinebot/pkg/domain"
	"github.com/sipeed/cinebot/pkg/infrastructure/eventbus"
	"github.com/sipeed/cinebot/pkg/integration"
)

func newTestServer(t *testing.T, apiKey string, deps Deps) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(config.GatewayConfig{Host: "127.0.0.1", APIKey: apiKey}, deps)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func getJSON(t *testing.T, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		check      error
		wantCode   int
		wantStatus string
	}{
		{"healthy", nil, http.StatusOK, "ok"},
		{"degraded", errors.New("connection refused"), http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := integration.NewRegistry()
			check := tt.check
			reg.Register(integration.Func{ID: "movies-db", Check: func(context.Context) error { return check }})
			_, srv := newTestServer(t, "", Deps{Integrations: reg})

			req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/health", nil)
			code, body := getJSON(t, req)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, body["status"])
		})
	}
}

func TestStatusReportsCounters(t *testing.T) {
	events := eventbus.New()
	events.Publish(domain.NewEvent(domain.EventMovieCreated, "m1", nil))
	manager := component.NewManager(bus.NewClickBus(), component.NewCleaner(nil))
	chat := conversation.NewSession(nil, nil, conversation.NewCache(time.Minute))
	chat.Cache().Set(conversation.Identity{UserID: "u1"}, []conversation.Turn{conversation.UserTurn("hi")})

	_, srv := newTestServer(t, "", Deps{Components: manager, Chat: chat, Events: events})

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/status", nil)
	code, body := getJSON(t, req)
	require.Equal(t, http.StatusOK, code)

	assert.EqualValues(t, 0, body["active_collectors"])
	chatInfo := body["chat"].(map[string]interface{})
	assert.Equal(t, false, chatInfo["configured"])
	assert.EqualValues(t, 1, chatInfo["cached_conversations"])
	assert.EqualValues(t, 1, body["events"].(map[string]interface{})["movie.created"])
	assert.NotContains(t, body, "movies")
}

func TestAuthMiddleware(t *testing.T) {
	_, srv := newTestServer(t, "secret", Deps{})

	tests := []struct {
		name   string
		path   string
		header map[string]string
		want   int
	}{
		{"health is public", "/api/health", nil, http.StatusOK},
		{"missing token", "/api/status", nil, http.StatusUnauthorized},
		{"wrong token", "/api/status", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"bearer", "/api/status", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"api key header", "/api/status", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"query token", "/api/status?token=secret", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, srv.URL+tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			code, _ := getJSON(t, req)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5m", formatDuration(5*time.Minute))
	assert.Equal(t, "2h 3m", formatDuration(2*time.Hour+3*time.Minute))
	assert.Equal(t, "1d 1h 0m", formatDuration(25*time.Hour))
}

func readEvents(t *testing.T, conn *websocket.Conn) []WSEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var out []WSEvent
	for _, line := range strings.Split(string(data), "\n") {
		var e WSEvent
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		out = append(out, e)
	}
	return out
}

func TestWebSocketStreamsDomainEvents(t *testing.T) {
	events := eventbus.New()
	s, srv := newTestServer(t, "", Deps{Events: events})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.wsHub.Run(ctx)
	s.bridge.Start()
	s.bridge.Start()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readEvents(t, conn)
	require.NotEmpty(t, first)
	assert.Equal(t, "initial_state", first[0].Type)

	events.Publish(domain.NewEvent(domain.EventMovieDeleted, "m1", map[string]string{"title": "Heat"}))

	var got []WSEvent
	for len(got) == 0 {
		for _, e := range readEvents(t, conn) {
			if e.Type == string(domain.EventMovieDeleted) {
				got = append(got, e)
			}
		}
	}
	require.Len(t, got, 1, "the bridge subscribes once")
	data := got[0].Data.(map[string]interface{})
	assert.Equal(t, "m1", data["aggregate_id"])
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	s, srv := newTestServer(t, "", Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.wsHub.Run(ctx)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
