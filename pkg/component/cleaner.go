package component

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/cinebot/pkg/cache"
	"github.com/sipeed/cinebot/pkg/logger"
)

// cleanedMemoTTL bounds how long a handle is remembered as cleaned.
const cleanedMemoTTL = 24 * time.Hour

// Editor is the slice of the Discord REST API the cleaner needs.
// *discordgo.Session satisfies it.
type Editor interface {
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageEdit(interaction *discordgo.Interaction, messageID string, data *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Cleaner strips the components from a reply. Cleanup never returns an
// error: failures are logged, and a handle that was already cleaned is not
// edited again.
type Cleaner struct {
	editor  Editor
	cleaned *cache.TTL[string, struct{}]
}

func NewCleaner(editor Editor) *Cleaner {
	return &Cleaner{
		editor:  editor,
		cleaned: cache.NewTTL[string, struct{}](cleanedMemoTTL),
	}
}

// Cleanup removes every component from the reply behind h.
func (c *Cleaner) Cleanup(ctx context.Context, h ReplyHandle) {
	if h == nil {
		return
	}
	if !c.claim(h.key()) {
		logger.DebugCF("component", "Reply already cleaned", map[string]interface{}{
			"message_id": h.ID(),
		})
		return
	}

	if err := c.strip(ctx, h); err != nil {
		c.cleaned.Delete(h.key())
		logger.ErrorCF("component", "Failed to remove components", map[string]interface{}{
			"message_id": h.ID(),
			"channel_id": h.ChannelID(),
			"error":      err.Error(),
		})
		return
	}

	logger.DebugCF("component", "Removed components", map[string]interface{}{
		"message_id": h.ID(),
	})
}

// claim marks key as cleaned and reports whether this caller was first.
func (c *Cleaner) claim(key string) bool {
	first := false
	c.cleaned.Update(key, func(_ struct{}, found bool) struct{} {
		first = !found
		return struct{}{}
	})
	return first
}

func (c *Cleaner) strip(ctx context.Context, h ReplyHandle) error {
	empty := []discordgo.MessageComponent{}
	withCtx := discordgo.WithContext(ctx)

	var err error
	switch v := h.(type) {
	case ChannelMessage:
		if !v.Editable {
			return nil
		}
		_, err = c.editor.ChannelMessageEditComplex(&discordgo.MessageEdit{
			ID:         v.MessageID,
			Channel:    v.Channel,
			Components: &empty,
		}, withCtx)
	case InteractionReply:
		_, err = c.editor.InteractionResponseEdit(v.Interaction, &discordgo.WebhookEdit{
			Components: &empty,
		}, withCtx)
	case InteractionFollowUp:
		_, err = c.editor.FollowupMessageEdit(v.Interaction, v.MessageID, &discordgo.WebhookEdit{
			Components: &empty,
		}, withCtx)
	default:
		return fmt.Errorf("unsupported reply handle %T", h)
	}

	if isGone(err) {
		return nil
	}
	return err
}

// isGone reports whether err says the message or interaction no longer
// exists, in which case there is nothing left to clean.
func isGone(err error) bool {
	if err == nil {
		return false
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Message == nil {
		return false
	}
	switch restErr.Message.Code {
	case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownWebhook:
		return true
	}
	return false
}
