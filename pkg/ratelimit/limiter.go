// Package ratelimit bounds how often a user, and a guild as a whole, may
// start an expensive operation. Budgets are fixed windows: the first attempt
// opens a window, attempts inside it count against the budget, and the
// window resets once it has elapsed.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Budget allows Count attempts per Window. A Budget with Count <= 0 (or no
// window) disables its dimension.
type Budget struct {
	Count  int
	Window time.Duration
}

// Enabled reports whether the budget limits anything.
func (b Budget) Enabled() bool {
	return b.Count > 0 && b.Window > 0
}

// Dimension names which budget was exhausted.
type Dimension string

const (
	DimensionUser  Dimension = "user"
	DimensionGuild Dimension = "guild"
)

// Scope identifies who is attempting. An empty GuildID (direct messages)
// is only subject to the user budget.
type Scope struct {
	UserID  string
	GuildID string
}

type window struct {
	start time.Time
	count int
}

func (w *window) expired(now time.Time, length time.Duration) bool {
	return !now.Before(w.start.Add(length))
}

// Limiter enforces one user budget and one guild budget. It is safe for
// concurrent use; the check and the increment happen under one lock, so two
// concurrent attempts can never both take the last slot.
type Limiter struct {
	name  string
	user  Budget
	guild Budget
	now   func() time.Time

	mu     sync.Mutex
	users  map[string]*window
	guilds map[string]*window
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter creates a limiter. name appears in logs and errors.
func NewLimiter(name string, user, guild Budget, opts ...Option) *Limiter {
	l := &Limiter{
		name:   name,
		user:   user,
		guild:  guild,
		now:    time.Now,
		users:  make(map[string]*window),
		guilds: make(map[string]*window),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Name() string { return l.name }

// Attempt records one attempt for scope, or returns an *ExceededError
// without recording anything when either budget is exhausted.
func (l *Limiter) Attempt(scope Scope) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	var userWin, guildWin *window
	if l.user.Enabled() {
		userWin = current(l.users, scope.UserID, l.user.Window, now)
		if userWin.count >= l.user.Count {
			return l.exceeded(DimensionUser, l.user, userWin, now)
		}
	}
	if l.guild.Enabled() && scope.GuildID != "" {
		guildWin = current(l.guilds, scope.GuildID, l.guild.Window, now)
		if guildWin.count >= l.guild.Count {
			return l.exceeded(DimensionGuild, l.guild, guildWin, now)
		}
	}

	if userWin != nil {
		userWin.count++
	}
	if guildWin != nil {
		guildWin.count++
	}
	return nil
}

// Remaining returns how many attempts scope has left in its current user
// window, or -1 when the user dimension is unlimited.
func (l *Limiter) Remaining(scope Scope) int {
	if !l.user.Enabled() {
		return -1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.users[scope.UserID]
	if !ok || w.expired(l.now(), l.user.Window) {
		return l.user.Count
	}
	return l.user.Count - w.count
}

// Sweep drops elapsed windows and returns how many were removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	return sweep(l.users, l.user.Window, now) + sweep(l.guilds, l.guild.Window, now)
}

// Len returns the number of tracked windows.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users) + len(l.guilds)
}

func (l *Limiter) exceeded(dim Dimension, b Budget, w *window, now time.Time) *ExceededError {
	return &ExceededError{
		Limiter:    l.name,
		Dimension:  dim,
		Budget:     b,
		RetryAfter: w.start.Add(b.Window).Sub(now),
	}
}

// current returns the open window for key, starting a fresh one when none
// exists or the previous one has elapsed.
func current(windows map[string]*window, key string, length time.Duration, now time.Time) *window {
	w, ok := windows[key]
	if !ok || w.expired(now, length) {
		w = &window{start: now}
		windows[key] = w
	}
	return w
}

func sweep(windows map[string]*window, length time.Duration, now time.Time) int {
	removed := 0
	for key, w := range windows {
		if w.expired(now, length) {
			delete(windows, key)
			removed++
		}
	}
	return removed
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

type RateLimitError string

func (e RateLimitError) Error() string { return string(e) }

// ErrRateLimited matches every *ExceededError under errors.Is.
const ErrRateLimited RateLimitError = "rate limited"

// ExceededError reports an exhausted budget and when to try again.
type ExceededError struct {
	Limiter    string
	Dimension  Dimension
	Budget     Budget
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limited: %s budget of %d per %s exhausted, retry in %s",
		e.Dimension, e.Budget.Count, e.Budget.Window, e.RetryAfter.Round(time.Second))
}

func (e *ExceededError) Unwrap() error { return ErrRateLimited }
