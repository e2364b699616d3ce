package bus

import "context"

// ClickEvent is one press of a message component (button) as delivered by
// the chat platform.
type ClickEvent struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	CustomID  string `json:"custom_id"`
	UserID    string `json:"user_id"`
	GuildID   string `json:"guild_id,omitempty"`

	// Acknowledge tells the platform the click was received. May be nil.
	Acknowledge func(ctx context.Context) error `json:"-"`
}

// Ack calls Acknowledge if the platform supplied one.
func (e ClickEvent) Ack(ctx context.Context) error {
	if e.Acknowledge == nil {
		return nil
	}
	return e.Acknowledge(ctx)
}

type ClickHandler func(ClickEvent)

type BusError string

func (e BusError) Error() string { return string(e) }

const (
	ErrClosed     BusError = "bus is closed"
	ErrNoChannel  BusError = "channel id cannot be empty"
	ErrNilHandler BusError = "click handler cannot be nil"
)
