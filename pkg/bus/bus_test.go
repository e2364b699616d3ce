package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesOnlyChannelSubscribers(t *testing.T) {
	b := NewClickBus()
	var gotA, gotB []string

	_, err := b.Subscribe("chan-a", func(e ClickEvent) { gotA = append(gotA, e.CustomID) })
	require.NoError(t, err)
	_, err = b.Subscribe("chan-b", func(e ClickEvent) { gotB = append(gotB, e.CustomID) })
	require.NoError(t, err)

	assert.Equal(t, 1, b.Publish(ClickEvent{ChannelID: "chan-a", CustomID: "x"}))
	assert.Equal(t, 1, b.Publish(ClickEvent{ChannelID: "chan-a", CustomID: "y"}))
	assert.Equal(t, 0, b.Publish(ClickEvent{ChannelID: "chan-c", CustomID: "z"}))

	assert.Equal(t, []string{"x", "y"}, gotA)
	assert.Empty(t, gotB)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := NewClickBus()
	calls := 0
	unsub, err := b.Subscribe("c", func(ClickEvent) { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 1, b.SubscriberCount())

	unsub()
	unsub()
	assert.Equal(t, 0, b.SubscriberCount())
	b.Publish(ClickEvent{ChannelID: "c"})
	assert.Zero(t, calls)
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	b := NewClickBus()
	var unsub func()
	calls := 0
	unsub, err := b.Subscribe("c", func(ClickEvent) {
		calls++
		unsub()
	})
	require.NoError(t, err)

	b.Publish(ClickEvent{ChannelID: "c"})
	b.Publish(ClickEvent{ChannelID: "c"})
	assert.Equal(t, 1, calls)
}

func TestSubscribeErrors(t *testing.T) {
	b := NewClickBus()

	_, err := b.Subscribe("", func(ClickEvent) {})
	assert.ErrorIs(t, err, ErrNoChannel)

	_, err = b.Subscribe("c", nil)
	assert.ErrorIs(t, err, ErrNilHandler)

	b.Close()
	b.Close()
	_, err = b.Subscribe("c", func(ClickEvent) {})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, b.Publish(ClickEvent{ChannelID: "c"}))
}

func TestAckWithoutAcknowledger(t *testing.T) {
	assert.NoError(t, ClickEvent{}.Ack(context.Background()))

	boom := errors.New("boom")
	e := ClickEvent{Acknowledge: func(context.Context) error { return boom }}
	assert.ErrorIs(t, e.Ack(context.Background()), boom)
}
