package ratelimit

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestOnePerMinute(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter("regular", Budget{Count: 1, Window: 60 * time.Second}, Budget{}, WithClock(clock.Now))
	scope := Scope{UserID: "u1", GuildID: "g1"}

	require.NoError(t, l.Attempt(scope))

	clock.Advance(10 * time.Second)
	err := l.Attempt(scope)
	var exceeded *ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, DimensionUser, exceeded.Dimension)
	assert.Equal(t, 50*time.Second, exceeded.RetryAfter)
	assert.ErrorIs(t, err, ErrRateLimited)

	clock.Advance(50 * time.Second)
	assert.NoError(t, l.Attempt(scope))
}

func TestBudgets(t *testing.T) {
	tests := []struct {
		name    string
		user    Budget
		guild   Budget
		scopes  []Scope
		wantErr []bool
		wantDim Dimension
	}{
		{
			name:    "unlimited",
			scopes:  []Scope{{"u", "g"}, {"u", "g"}, {"u", "g"}},
			wantErr: []bool{false, false, false},
		},
		{
			name:    "zero count disables",
			user:    Budget{Count: 0, Window: time.Minute},
			scopes:  []Scope{{"u", "g"}, {"u", "g"}},
			wantErr: []bool{false, false},
		},
		{
			name:    "guild shared across users",
			guild:   Budget{Count: 2, Window: time.Minute},
			scopes:  []Scope{{"a", "g"}, {"b", "g"}, {"c", "g"}},
			wantErr: []bool{false, false, true},
			wantDim: DimensionGuild,
		},
		{
			name:    "direct messages skip guild budget",
			guild:   Budget{Count: 1, Window: time.Minute},
			scopes:  []Scope{{"a", ""}, {"a", ""}},
			wantErr: []bool{false, false},
		},
		{
			name:    "users are independent",
			user:    Budget{Count: 1, Window: time.Minute},
			scopes:  []Scope{{"a", "g"}, {"b", "g"}, {"a", "g"}},
			wantErr: []bool{false, false, true},
			wantDim: DimensionUser,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLimiter("t", tt.user, tt.guild)
			for i, scope := range tt.scopes {
				err := l.Attempt(scope)
				if !tt.wantErr[i] {
					assert.NoError(t, err, "attempt %d", i)
					continue
				}
				var exceeded *ExceededError
				require.True(t, errors.As(err, &exceeded), "attempt %d", i)
				assert.Equal(t, tt.wantDim, exceeded.Dimension)
			}
		})
	}
}

func TestRejectedAttemptIsNotRecorded(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter("t", Budget{Count: 5, Window: time.Minute}, Budget{Count: 1, Window: time.Minute}, WithClock(clock.Now))

	require.NoError(t, l.Attempt(Scope{"a", "g"}))
	assert.Equal(t, 4, l.Remaining(Scope{UserID: "a"}))

	// b is denied by the guild budget, so b's user window is untouched.
	assert.Error(t, l.Attempt(Scope{"b", "g"}))
	assert.Equal(t, 5, l.Remaining(Scope{UserID: "b"}))
}

func TestConcurrentAttemptsNeverOvershoot(t *testing.T) {
	l := NewLimiter("t", Budget{Count: 10, Window: time.Hour}, Budget{})
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Attempt(Scope{UserID: "u"}) == nil {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(10), allowed.Load())
}

func TestSweep(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter("t", Budget{Count: 1, Window: time.Minute}, Budget{Count: 1, Window: time.Hour}, WithClock(clock.Now))

	require.NoError(t, l.Attempt(Scope{"a", "g"}))
	assert.Equal(t, 2, l.Len())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 0, l.Sweep())
}

func TestRemainingUnlimited(t *testing.T) {
	l := NewLimiter("t", Budget{}, Budget{})
	assert.Equal(t, -1, l.Remaining(Scope{UserID: "a"}))
}

func TestExceededErrorMessage(t *testing.T) {
	err := &ExceededError{Dimension: DimensionUser, Budget: Budget{Count: 3, Window: time.Minute}, RetryAfter: 1500 * time.Millisecond}
	assert.Equal(t, "rate limited: user budget of 3 per 1m0s exhausted, retry in 2s", err.Error())
}
