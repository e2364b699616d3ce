package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sipeed/cinebot/pkg/domain"
)

func TestPublishOrderAndCounts(t *testing.T) {
	b := New()
	var order []string

	b.Subscribe(domain.EventMovieCreated, func(domain.Event) { order = append(order, "typed") })
	b.SubscribeAll(func(domain.Event) { order = append(order, "all") })
	b.SubscribeAll(LogSink)

	b.Publish(domain.NewEvent(domain.EventMovieCreated, "m1", nil))
	b.Publish(domain.NewEvent(domain.EventMovieDeleted, "m1", nil))

	assert.Equal(t, []string{"typed", "all", "all"}, order)
	assert.Equal(t, map[string]int64{
		"movie.created": 1,
		"movie.deleted": 1,
	}, b.Counts())
	assert.Equal(t, 3, b.HandlerCount())
}

func TestClosedBusDropsEvents(t *testing.T) {
	b := New()
	calls := 0
	b.SubscribeAll(func(domain.Event) { calls++ })
	b.Close()

	b.PublishAll([]domain.Event{
		domain.NewEvent(domain.EventSystemShutdown, "", nil),
	})
	assert.Zero(t, calls)
	assert.Empty(t, b.Counts())
}

func TestHandlerMaySubscribeDuringPublish(t *testing.T) {
	b := New()
	b.SubscribeAll(func(domain.Event) {
		b.Subscribe(domain.EventMovieUpdated, func(domain.Event) {})
	})
	assert.NotPanics(t, func() {
		b.Publish(domain.NewEvent(domain.EventMovieUpdated, "", nil))
	})
	assert.Equal(t, 2, b.HandlerCount())
}
