package ratelimit

import "strings"

// Policy picks the limiter for each attempt: the allow-listed limiter for
// users on the allow-list, the regular one for everybody else. Membership
// is checked on every call and the two limiters never share counters.
type Policy struct {
	regular     *Limiter
	allowListed *Limiter
	allowList   map[string]struct{}
}

// NewPolicy builds a policy. A nil allowListed limiter makes allow-listed
// users share the regular limiter.
func NewPolicy(regular, allowListed *Limiter, allowList []string) *Policy {
	set := make(map[string]struct{}, len(allowList))
	for _, id := range allowList {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	if allowListed == nil {
		allowListed = regular
	}
	return &Policy{regular: regular, allowListed: allowListed, allowList: set}
}

// AllowListed reports whether userID is on the allow-list.
func (p *Policy) AllowListed(userID string) bool {
	_, ok := p.allowList[userID]
	return ok
}

// For returns the limiter that governs userID.
func (p *Policy) For(userID string) *Limiter {
	if p.AllowListed(userID) {
		return p.allowListed
	}
	return p.regular
}

// Attempt records an attempt on the limiter that governs scope.UserID.
func (p *Policy) Attempt(scope Scope) error {
	return p.For(scope.UserID).Attempt(scope)
}

// Sweep drops elapsed windows from both limiters.
func (p *Policy) Sweep() int {
	n := p.regular.Sweep()
	if p.allowListed != p.regular {
		n += p.allowListed.Sweep()
	}
	return n
}

// Len returns the number of tracked windows across both limiters.
func (p *Policy) Len() int {
	n := p.regular.Len()
	if p.allowListed != p.regular {
		n += p.allowListed.Len()
	}
	return n
}
