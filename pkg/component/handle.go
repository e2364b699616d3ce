// Package component manages the lifetime of buttons attached to a bot reply:
// it listens for the first relevant click on one reply, dispatches it, and
// guarantees the buttons are stripped exactly once afterwards, whichever of
// click or timeout comes first.
package component

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// InteractionMaxLifetime is how long Discord keeps an interaction token
// usable for edits.
const InteractionMaxLifetime = 15 * time.Minute

// ReplyHandle is where a reply currently lives. It is one of
// ChannelMessage, InteractionReply or InteractionFollowUp; each variant
// carries exactly what its edit needs.
type ReplyHandle interface {
	// ID is the message id clicks are matched against.
	ID() string
	// ChannelID is the channel whose click stream is observed.
	ChannelID() string

	key() string
}

// ChannelMessage is a plain message sent to a channel outside of any
// interaction.
type ChannelMessage struct {
	MessageID string
	Channel   string
	// Editable is false when the bot cannot edit the message (it is not the
	// author, or the message is a system type).
	Editable bool
}

// NewChannelMessage builds a handle for msg. botUserID is the bot's own user
// id, used to decide whether the message is editable.
func NewChannelMessage(msg *discordgo.Message, botUserID string) ChannelMessage {
	editable := msg.Type == discordgo.MessageTypeDefault &&
		msg.Author != nil && msg.Author.ID == botUserID
	return ChannelMessage{
		MessageID: msg.ID,
		Channel:   msg.ChannelID,
		Editable:  editable,
	}
}

func (h ChannelMessage) ID() string        { return h.MessageID }
func (h ChannelMessage) ChannelID() string { return h.Channel }
func (h ChannelMessage) key() string       { return "message:" + h.Channel + ":" + h.MessageID }

// InteractionReply is the primary (possibly deferred) response of an
// interaction.
type InteractionReply struct {
	Interaction *discordgo.Interaction
	MessageID   string
	CreatedAt   time.Time
}

// NewInteractionReply builds a handle for the primary response of i. msg
// is the fetched reply; it supplies the id clicks are matched against.
func NewInteractionReply(i *discordgo.Interaction, msg *discordgo.Message) InteractionReply {
	h := InteractionReply{Interaction: i, CreatedAt: interactionCreated(i)}
	if msg != nil {
		h.MessageID = msg.ID
	}
	return h
}

func (h InteractionReply) ID() string        { return h.MessageID }
func (h InteractionReply) ChannelID() string { return h.Interaction.ChannelID }
func (h InteractionReply) key() string       { return "reply:" + h.Interaction.ID }

// InteractionFollowUp is a follow-up message sent through an interaction's
// webhook. It is a separate message from the primary reply and is edited
// through the webhook message path.
type InteractionFollowUp struct {
	Interaction *discordgo.Interaction
	MessageID   string
	CreatedAt   time.Time
}

// NewInteractionFollowUp builds a handle for the follow-up msg of i.
func NewInteractionFollowUp(i *discordgo.Interaction, msg *discordgo.Message) InteractionFollowUp {
	return InteractionFollowUp{
		Interaction: i,
		MessageID:   msg.ID,
		CreatedAt:   interactionCreated(i),
	}
}

func (h InteractionFollowUp) ID() string        { return h.MessageID }
func (h InteractionFollowUp) ChannelID() string { return h.Interaction.ChannelID }
func (h InteractionFollowUp) key() string {
	return "followup:" + h.Interaction.ID + ":" + h.MessageID
}

func interactionCreated(i *discordgo.Interaction) time.Time {
	if i == nil {
		return time.Now()
	}
	ts, err := discordgo.SnowflakeTimestamp(i.ID)
	if err != nil || ts.IsZero() {
		return time.Now()
	}
	return ts
}

// DefaultDeadline is when listening on h must stop: the end of the
// interaction token's life for interaction-backed handles, or now plus
// channelTimeout for channel messages.
func DefaultDeadline(h ReplyHandle, now time.Time, channelTimeout time.Duration) time.Time {
	switch v := h.(type) {
	case InteractionReply:
		return v.CreatedAt.Add(InteractionMaxLifetime)
	case InteractionFollowUp:
		return v.CreatedAt.Add(InteractionMaxLifetime)
	default:
		return now.Add(channelTimeout)
	}
}
