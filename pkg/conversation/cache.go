// Package conversation holds multi-turn chat sessions with a generative
// backend. History is kept per (user, guild) in a TTL cache and every
// exchange is gated by a rate limit policy.
package conversation

import (
	"context"
	"time"

	"github.com/sipeed/cinebot/pkg/cache"
	"github.com/sipeed/cinebot/pkg/domain"
)

// Identity is the conversation key. A user talking in two guilds, or in a
// guild and in direct messages, holds two separate conversations.
type Identity struct {
	UserID  string
	GuildID string
}

func (id Identity) String() string {
	if id.GuildID == "" {
		return id.UserID + "@dm"
	}
	return id.UserID + "@" + id.GuildID
}

// Turn is one message of a conversation.
type Turn struct {
	Role    domain.MessageRole `json:"role"`
	Content string             `json:"content"`
}

func UserTurn(content string) Turn      { return Turn{Role: domain.RoleUser, Content: content} }
func AssistantTurn(content string) Turn { return Turn{Role: domain.RoleAssistant, Content: content} }
func SystemTurn(content string) Turn    { return Turn{Role: domain.RoleSystem, Content: content} }

// Cache maps identities to their turn history. Writes arm the entry's
// expiry to now+ttl; reads never extend it. A Cache built with ttl <= 0 is
// disabled: reads are empty and writes are dropped.
type Cache struct {
	entries *cache.TTL[Identity, []Turn]
}

// NewCache creates a cache whose entries expire ttl after their last write.
func NewCache(ttl time.Duration, opts ...cache.Option) *Cache {
	if ttl <= 0 {
		return &Cache{}
	}
	return &Cache{entries: cache.NewTTL[Identity, []Turn](ttl, opts...)}
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c != nil && c.entries != nil
}

// TTL is the inactivity window, zero when disabled.
func (c *Cache) TTL() time.Duration {
	if !c.Enabled() {
		return 0
	}
	return c.entries.TTL()
}

// Get returns a copy of the history for id, empty when absent or expired.
func (c *Cache) Get(id Identity) []Turn {
	if !c.Enabled() {
		return nil
	}
	turns, ok := c.entries.Get(id)
	if !ok {
		return nil
	}
	return clone(turns)
}

// Set replaces the history for id.
func (c *Cache) Set(id Identity, turns []Turn) {
	if !c.Enabled() {
		return
	}
	c.entries.Set(id, clone(turns))
}

// Append adds turns to the end of the current history for id in one atomic
// step and returns the new length.
func (c *Cache) Append(id Identity, turns ...Turn) int {
	if !c.Enabled() {
		return 0
	}
	next := c.entries.Update(id, func(current []Turn, _ bool) []Turn {
		out := make([]Turn, 0, len(current)+len(turns))
		out = append(out, current...)
		return append(out, turns...)
	})
	return len(next)
}

func (c *Cache) Delete(id Identity) {
	if !c.Enabled() {
		return
	}
	c.entries.Delete(id)
}

// Len returns the number of live conversations.
func (c *Cache) Len() int {
	if !c.Enabled() {
		return 0
	}
	return c.entries.Len()
}

// Sweep removes expired conversations and returns how many were removed.
func (c *Cache) Sweep() int {
	if !c.Enabled() {
		return 0
	}
	return c.entries.Sweep()
}

// Run sweeps every period until ctx is cancelled. It returns immediately
// when the cache is disabled.
func (c *Cache) Run(ctx context.Context, period time.Duration) {
	if !c.Enabled() {
		return
	}
	c.entries.Run(ctx, "conversation", period)
}

func clone(turns []Turn) []Turn {
	if len(turns) == 0 {
		return nil
	}
	return append([]Turn(nil), turns...)
}
