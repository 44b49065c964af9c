package spamguard

import (
	"sync"
	"time"
)

// Cooldowns tracks the last invocation per command and user. Entries delete
// themselves once their cooldown has elapsed.
type Cooldowns struct {
	now func() time.Time

	mu   sync.Mutex
	last map[key]time.Time
}

func NewCooldowns() *Cooldowns {
	return &Cooldowns{now: time.Now, last: make(map[key]time.Time)}
}

// Hit returns the remaining wait when the caller is still cooling down.
// Otherwise it starts a new cooldown and returns 0.
func (c *Cooldowns) Hit(command, userID string, cooldown time.Duration) time.Duration {
	if cooldown <= 0 {
		return 0
	}
	k := key{userID: userID, command: command}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.last[k]; ok {
		if remaining := last.Add(cooldown).Sub(now); remaining > 0 {
			return remaining
		}
	}
	c.last[k] = now
	time.AfterFunc(cooldown, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.last[k].Equal(now) {
			delete(c.last, k)
		}
	})
	return 0
}
