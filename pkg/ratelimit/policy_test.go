package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyKeepsClassesIndependent(t *testing.T) {
	clock := newFakeClock()
	guild := Budget{Count: 100, Window: time.Hour}
	regular := NewLimiter("regular", Budget{Count: 1, Window: time.Hour}, guild, WithClock(clock.Now))
	allowListed := NewLimiter("allow-listed", Budget{Count: 3, Window: time.Hour}, guild, WithClock(clock.Now))
	p := NewPolicy(regular, allowListed, []string{" vip ", ""})

	assert.True(t, p.AllowListed("vip"))
	assert.False(t, p.AllowListed(""))
	assert.Same(t, allowListed, p.For("vip"))
	assert.Same(t, regular, p.For("pleb"))

	require.NoError(t, p.Attempt(Scope{"pleb", "g"}))
	assert.Error(t, p.Attempt(Scope{"pleb", "g"}))

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Attempt(Scope{"vip", "g"}), "attempt %d", i)
	}
	var exceeded *ExceededError
	require.ErrorAs(t, p.Attempt(Scope{"vip", "g"}), &exceeded)
	assert.Equal(t, "allow-listed", exceeded.Limiter)

	assert.Equal(t, 4, p.Len())
	clock.Advance(2 * time.Hour)
	assert.Equal(t, 4, p.Sweep())
}

func TestPolicyWithoutAllowListedLimiter(t *testing.T) {
	regular := NewLimiter("regular", Budget{Count: 1, Window: time.Hour}, Budget{})
	p := NewPolicy(regular, nil, []string{"vip"})

	assert.Same(t, regular, p.For("vip"))
	require.NoError(t, p.Attempt(Scope{UserID: "vip"}))
	assert.Error(t, p.Attempt(Scope{UserID: "vip"}))
	assert.Equal(t, 1, p.Len())
}
