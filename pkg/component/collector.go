package component

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sipeed/cinebot/pkg/bus"
	"github.com/sipeed/cinebot/pkg/domain"
	"github.com/sipeed/cinebot/pkg/logger"
)

// Handler runs when its button is clicked.
type Handler func(ctx context.Context) error

// Handlers maps a button custom id to its handler.
type Handlers map[string]Handler

// Subscriber delivers the click events of one channel. *bus.ClickBus
// satisfies it.
type Subscriber interface {
	Subscribe(channelID string, handler bus.ClickHandler) (func(), error)
}

// Reason says why a collector terminated.
type Reason string

const (
	ReasonCollected       Reason = "collected"
	ReasonTime            Reason = "time"
	ReasonSubscribeFailed Reason = "subscribe_failed"
)

// ---------------------------------------------------------------------------
// Manager
// ---------------------------------------------------------------------------

// Manager starts collectors against a shared click stream and cleaner.
type Manager struct {
	subscriber     Subscriber
	cleaner        *Cleaner
	events         domain.Publisher
	channelTimeout time.Duration
	now            func() time.Time
	active         atomic.Int64
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithChannelTimeout sets the listening window for plain channel messages.
func WithChannelTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.channelTimeout = d
		}
	}
}

// WithEvents publishes collector lifecycle events on p.
func WithEvents(p domain.Publisher) ManagerOption {
	return func(m *Manager) { m.events = p }
}

// WithManagerClock replaces time.Now for deadline computation (tests).
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(subscriber Subscriber, cleaner *Cleaner, opts ...ManagerOption) *Manager {
	m := &Manager{
		subscriber:     subscriber,
		cleaner:        cleaner,
		channelTimeout: InteractionMaxLifetime,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Active returns the number of collectors still listening.
func (m *Manager) Active() int {
	return int(m.active.Load())
}

// ListenOption configures one Listen call.
type ListenOption func(*listenOptions)

type listenOptions struct {
	cleanup  Handler
	deadline time.Time
	timeout  time.Duration
}

// WithCleanup runs fn after a dispatched handler and before the components
// are stripped.
func WithCleanup(fn Handler) ListenOption {
	return func(o *listenOptions) { o.cleanup = fn }
}

// WithDeadline overrides the default deadline.
func WithDeadline(t time.Time) ListenOption {
	return func(o *listenOptions) { o.deadline = t }
}

// WithTimeout sets the deadline to now+d.
func WithTimeout(d time.Duration) ListenOption {
	return func(o *listenOptions) { o.timeout = d }
}

// Listen starts collecting clicks for the reply behind handle. It never
// fails: if the click stream cannot be subscribed, the components are
// stripped right away.
func (m *Manager) Listen(ctx context.Context, handle ReplyHandle, handlers Handlers, opts ...ListenOption) *Collector {
	var o listenOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.deadline.IsZero() && o.timeout > 0 {
		o.deadline = m.now().Add(o.timeout)
	}
	if o.deadline.IsZero() {
		o.deadline = DefaultDeadline(handle, m.now(), m.channelTimeout)
	}

	c := &Collector{
		manager:  m,
		handle:   handle,
		handlers: handlers,
		cleanup:  o.cleanup,
		deadline: o.deadline,
		ctx:      context.WithoutCancel(ctx),
		done:     make(chan struct{}),
	}
	m.active.Add(1)

	c.mu.Lock()
	unsubscribe, err := m.subscriber.Subscribe(handle.ChannelID(), c.onClick)
	if err != nil {
		c.mu.Unlock()
		logger.ErrorCF("component", "Could not listen for buttons", map[string]interface{}{
			"message_id": handle.ID(),
			"channel_id": handle.ChannelID(),
			"error":      err.Error(),
		})
		if c.terminate() {
			go c.finish(ReasonSubscribeFailed)
		}
		return c
	}
	c.unsubscribe = unsubscribe
	c.timer = time.AfterFunc(time.Until(o.deadline), c.onDeadline)
	c.mu.Unlock()

	logger.DebugCF("component", "Listening for buttons", map[string]interface{}{
		"message_id": handle.ID(),
		"channel_id": handle.ChannelID(),
		"deadline":   o.deadline.Format(time.RFC3339),
		"handlers":   len(handlers),
	})
	return c
}

// ---------------------------------------------------------------------------
// Collector
// ---------------------------------------------------------------------------

// Collector is one listening session on one reply. It is either active or
// terminated, and becomes terminated exactly once: by the first click on a
// registered button, by its deadline, or by a failed subscription.
// Whichever path wins runs the cleanup; the others do nothing.
type Collector struct {
	manager  *Manager
	handle   ReplyHandle
	handlers Handlers
	cleanup  Handler
	deadline time.Time
	ctx      context.Context

	terminated atomic.Bool
	reason     atomic.Value

	mu          sync.Mutex
	timer       *time.Timer
	unsubscribe func()

	done chan struct{}
}

// Done is closed once the collector has terminated and its cleanup ran.
func (c *Collector) Done() <-chan struct{} { return c.done }

// Deadline is when the collector stops listening.
func (c *Collector) Deadline() time.Time { return c.deadline }

// Reason is why the collector terminated, or "" while active.
func (c *Collector) Reason() Reason {
	r, _ := c.reason.Load().(Reason)
	return r
}

// Terminated reports whether the collector has stopped listening.
func (c *Collector) Terminated() bool { return c.terminated.Load() }

func (c *Collector) onClick(event bus.ClickEvent) {
	if event.MessageID != c.handle.ID() || c.terminated.Load() {
		return
	}

	if err := event.Ack(c.ctx); err != nil {
		logger.WarnCF("component", "Could not acknowledge click", map[string]interface{}{
			"custom_id":  event.CustomID,
			"message_id": event.MessageID,
			"error":      err.Error(),
		})
	}

	handler, ok := c.handlers[event.CustomID]
	if !ok {
		return
	}
	if !c.terminate() {
		return
	}

	c.release()
	if err := handler(c.ctx); err != nil {
		logger.ErrorCF("component", "Button handler failed", map[string]interface{}{
			"custom_id":  event.CustomID,
			"message_id": event.MessageID,
			"error":      err.Error(),
		})
	}
	if c.cleanup != nil {
		if err := c.cleanup(c.ctx); err != nil {
			logger.ErrorCF("component", "Button cleanup callback failed", map[string]interface{}{
				"custom_id":  event.CustomID,
				"message_id": event.MessageID,
				"error":      err.Error(),
			})
		}
	}
	c.finish(ReasonCollected)
}

func (c *Collector) onDeadline() {
	if !c.terminate() {
		return
	}
	c.release()
	c.finish(ReasonTime)
}

// terminate performs the single active→terminated transition and reports
// whether the caller made it.
func (c *Collector) terminate() bool {
	return c.terminated.CompareAndSwap(false, true)
}

// release stops the timer and drops the subscription.
func (c *Collector) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Collector) finish(reason Reason) {
	c.reason.Store(reason)
	logger.InfoCF("component", "Ended collection of message components", map[string]interface{}{
		"message_id": c.handle.ID(),
		"reason":     string(reason),
	})

	c.manager.cleaner.Cleanup(c.ctx, c.handle)

	eventType := domain.EventComponentCollected
	switch reason {
	case ReasonTime:
		eventType = domain.EventComponentExpired
	case ReasonSubscribeFailed:
		eventType = domain.EventComponentFailed
	}
	domain.PublishTo(c.manager.events, domain.NewEvent(eventType, domain.EntityID(c.handle.ID()), map[string]string{
		"channel_id": c.handle.ChannelID(),
		"reason":     string(reason),
	}))

	c.manager.active.Add(-1)
	close(c.done)
}
