package spamguard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time            { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newGuard() (*Guard, *clock) {
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	g := New(7*time.Second, 2, zap.NewNop())
	g.now = c.now
	return g, c
}

func TestThirdInvocationInWindowIsSpam(t *testing.T) {
	g, c := newGuard()

	assert.Equal(t, Result{IsSpam: false, Count: 1}, g.Check("u", "balance"))
	c.advance(2 * time.Second)
	assert.Equal(t, Result{IsSpam: false, Count: 2}, g.Check("u", "balance"))
	c.advance(2 * time.Second)
	assert.Equal(t, Result{IsSpam: true, Count: 3}, g.Check("u", "balance"))
}

func TestWindowSlides(t *testing.T) {
	g, c := newGuard()

	g.Check("u", "balance")
	c.advance(5 * time.Second)
	g.Check("u", "balance")
	c.advance(3 * time.Second)
	// The first call is now 8s old and falls out of the window.
	assert.Equal(t, Result{IsSpam: false, Count: 2}, g.Check("u", "balance"))
}

func TestCountsArePerUserAndCommand(t *testing.T) {
	g, _ := newGuard()

	g.Check("u", "a")
	g.Check("u", "a")
	assert.False(t, g.Check("u", "b").IsSpam)
	assert.False(t, g.Check("v", "a").IsSpam)
	assert.True(t, g.Check("u", "a").IsSpam)
}

func TestClearUserHistory(t *testing.T) {
	g, _ := newGuard()
	g.Check("u", "a")
	g.Check("u", "b")
	g.Check("v", "a")

	g.ClearUserHistory("u")
	assert.Equal(t, 1, g.size())
	assert.Equal(t, 1, g.Check("u", "a").Count)
}

func TestCleanupPurgesStaleKeys(t *testing.T) {
	g, c := newGuard()
	g.Check("u", "a")
	c.advance(5 * time.Second)
	g.Check("v", "a")
	c.advance(3 * time.Second)

	assert.Equal(t, 1, g.Cleanup())
	assert.Equal(t, 1, g.size())
}

func TestCooldowns(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	cd := NewCooldowns()
	cd.now = c.now

	assert.Zero(t, cd.Hit("sync", "u", 5*time.Second))
	c.advance(2 * time.Second)
	assert.Equal(t, 3*time.Second, cd.Hit("sync", "u", 5*time.Second))
	assert.Zero(t, cd.Hit("sync", "v", 5*time.Second))
	assert.Zero(t, cd.Hit("other", "u", 5*time.Second))
	c.advance(3 * time.Second)
	assert.Zero(t, cd.Hit("sync", "u", 5*time.Second))
	assert.Zero(t, cd.Hit("nocd", "u", 0))
}
