package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/sipeed/cinebot/pkg/domain"
	"github.com/sipeed/cinebot/pkg/logger"
	"github.com/sipeed/cinebot/pkg/ratelimit"
)

// Backend produces the next assistant message for a conversation.
type Backend interface {
	Complete(ctx context.Context, turns []Turn) (string, error)
}

// Named is implemented by backends that report a name for logs and errors.
type Named interface {
	Name() string
}

// Session answers queries for any identity, combining the rate limit
// policy, the cache and the backend.
type Session struct {
	backend      Backend
	policy       *ratelimit.Policy
	cache        *Cache
	systemPrompt string
	events       domain.Publisher
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSystemPrompt prepends a system turn to every backend call. It is
// never stored in the cache.
func WithSystemPrompt(prompt string) SessionOption {
	return func(s *Session) { s.systemPrompt = strings.TrimSpace(prompt) }
}

// WithEvents publishes exchange events on p.
func WithEvents(p domain.Publisher) SessionOption {
	return func(s *Session) { s.events = p }
}

// NewSession wires a session. backend may be nil, in which case Respond
// always fails with ErrNotConfigured. A nil policy does not limit, a nil
// cache keeps no history.
func NewSession(backend Backend, policy *ratelimit.Policy, cache *Cache, opts ...SessionOption) *Session {
	if cache == nil {
		cache = NewCache(0)
	}
	s := &Session{backend: backend, policy: policy, cache: cache}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether a backend is wired.
func (s *Session) Configured() bool { return s.backend != nil }

// Cache returns the session's history store.
func (s *Session) Cache() *Cache { return s.cache }

// Policy returns the session's rate limit policy, possibly nil.
func (s *Session) Policy() *ratelimit.Policy { return s.policy }

// RespondOption configures one Respond call.
type RespondOption func(*respondOptions)

type respondOptions struct {
	history    []Turn
	hasHistory bool
}

// WithHistory answers against turns instead of the cached history. The
// exchange is then not written back to the cache.
func WithHistory(turns []Turn) RespondOption {
	return func(o *respondOptions) {
		o.history = turns
		o.hasHistory = true
	}
}

// Respond sends query to the backend in the context of id's conversation
// and returns the reply. A *ratelimit.ExceededError is returned unchanged;
// backend failures come back as *BackendError and leave the history as it
// was.
func (s *Session) Respond(ctx context.Context, id Identity, query string, opts ...RespondOption) (string, error) {
	if s.backend == nil {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}

	var o respondOptions
	for _, opt := range opts {
		opt(&o)
	}

	if s.policy != nil {
		if err := s.policy.Attempt(ratelimit.Scope{UserID: id.UserID, GuildID: id.GuildID}); err != nil {
			var exceeded *ratelimit.ExceededError
			if errors.As(err, &exceeded) {
				logger.InfoCF("conversation", "Rate limited", map[string]interface{}{
					"identity":    id.String(),
					"limiter":     exceeded.Limiter,
					"dimension":   string(exceeded.Dimension),
					"retry_after": exceeded.RetryAfter.String(),
				})
				s.publish(domain.EventConversationRateLimited, id, map[string]interface{}{
					"dimension":   string(exceeded.Dimension),
					"retry_after": exceeded.RetryAfter.Seconds(),
				})
			}
			return "", err
		}
	}

	history := o.history
	if !o.hasHistory {
		history = s.cache.Get(id)
	}

	turns := make([]Turn, 0, len(history)+2)
	if s.systemPrompt != "" {
		turns = append(turns, SystemTurn(s.systemPrompt))
	}
	turns = append(turns, history...)
	turns = append(turns, UserTurn(query))

	reply, err := s.backend.Complete(ctx, turns)
	if err != nil {
		be := &BackendError{Backend: s.backendName(), Err: err}
		logger.ErrorCF("conversation", "Backend request failed", map[string]interface{}{
			"identity": id.String(),
			"backend":  be.Backend,
			"error":    err.Error(),
		})
		s.publish(domain.EventConversationFailed, id, map[string]interface{}{"error": err.Error()})
		return "", be
	}

	if reply == "" {
		logger.WarnCF("conversation", "Backend returned no content", map[string]interface{}{
			"identity": id.String(),
		})
		return FallbackReply, nil
	}

	stored := 0
	if !o.hasHistory {
		stored = s.cache.Append(id, UserTurn(query), AssistantTurn(reply))
	}

	logger.DebugCF("conversation", "Exchanged turn", map[string]interface{}{
		"identity":      id.String(),
		"history_turns": len(history),
		"stored_turns":  stored,
	})
	s.publish(domain.EventConversationExchanged, id, map[string]interface{}{
		"history_turns": len(history),
		"stored_turns":  stored,
	})
	return reply, nil
}

// Forget drops the cached history for id.
func (s *Session) Forget(id Identity) {
	s.cache.Delete(id)
}

func (s *Session) backendName() string {
	if n, ok := s.backend.(Named); ok {
		return n.Name()
	}
	return ""
}

func (s *Session) publish(t domain.EventType, id Identity, data map[string]interface{}) {
	data["user_id"] = id.UserID
	data["guild_id"] = id.GuildID
	domain.PublishTo(s.events, domain.NewEvent(t, domain.EntityID(id.String()), data))
}
