package component

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupByShape(t *testing.T) {
	i := &discordgo.Interaction{ID: "i1", ChannelID: "c1"}

	tests := []struct {
		name   string
		handle ReplyHandle
		want   []editCall
	}{
		{
			name:   "editable channel message",
			handle: ChannelMessage{MessageID: "m1", Channel: "c1", Editable: true},
			want:   []editCall{{kind: "channel", messageID: "m1", channelID: "c1", empty: true}},
		},
		{
			name:   "non-editable channel message",
			handle: ChannelMessage{MessageID: "m1", Channel: "c1"},
			want:   nil,
		},
		{
			name:   "interaction reply",
			handle: InteractionReply{Interaction: i, MessageID: "m2"},
			want:   []editCall{{kind: "reply", channelID: "c1", empty: true}},
		},
		{
			name:   "follow-up",
			handle: InteractionFollowUp{Interaction: i, MessageID: "m3"},
			want:   []editCall{{kind: "followup", messageID: "m3", channelID: "c1", empty: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			editor := &fakeEditor{}
			NewCleaner(editor).Cleanup(context.Background(), tt.handle)
			assert.Equal(t, tt.want, editor.Calls())
		})
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	editor := &fakeEditor{}
	cleaner := NewCleaner(editor)
	h := ChannelMessage{MessageID: "m1", Channel: "c1", Editable: true}

	cleaner.Cleanup(context.Background(), h)
	cleaner.Cleanup(context.Background(), h)
	assert.Len(t, editor.Calls(), 1)
}

func TestConcurrentCleanupEditsOnce(t *testing.T) {
	editor := &fakeEditor{}
	cleaner := NewCleaner(editor)
	h := InteractionFollowUp{Interaction: &discordgo.Interaction{ID: "i1", ChannelID: "c1"}, MessageID: "f1"}

	var wg sync.WaitGroup
	for n := 0; n < 32; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cleaner.Cleanup(context.Background(), h)
		}()
	}
	wg.Wait()
	assert.Len(t, editor.Calls(), 1)
}

func TestCleanupFailureIsRetryable(t *testing.T) {
	editor := &fakeEditor{err: errors.New("503 service unavailable")}
	cleaner := NewCleaner(editor)
	h := ChannelMessage{MessageID: "m1", Channel: "c1", Editable: true}

	assert.NotPanics(t, func() { cleaner.Cleanup(context.Background(), h) })
	require.Len(t, editor.Calls(), 1)

	editor.setErr(nil)
	cleaner.Cleanup(context.Background(), h)
	cleaner.Cleanup(context.Background(), h)
	assert.Len(t, editor.Calls(), 2)
}

func TestUnknownMessageCountsAsCleaned(t *testing.T) {
	editor := &fakeEditor{err: &discordgo.RESTError{
		Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage},
	}}
	cleaner := NewCleaner(editor)
	h := ChannelMessage{MessageID: "m1", Channel: "c1", Editable: true}

	cleaner.Cleanup(context.Background(), h)
	cleaner.Cleanup(context.Background(), h)
	assert.Len(t, editor.Calls(), 1)
}

func TestIsGone(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"unknown message", &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage}}, true},
		{"unknown webhook", &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownWebhook}}, true},
		{"missing access", &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingAccess}}, false},
		{"no body", &discordgo.RESTError{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isGone(tt.err))
		})
	}
}
