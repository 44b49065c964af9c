package spamguard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Result struct {
	IsSpam bool
	Count  int
}

type key struct {
	userID  string
	command string
}

// Guard counts invocations per user and command over a sliding window.
type Guard struct {
	window    time.Duration
	threshold int
	now       func() time.Time
	logger    *zap.Logger

	mu      sync.Mutex
	history map[key][]time.Time
}

func New(window time.Duration, threshold int, logger *zap.Logger) *Guard {
	return &Guard{
		window:    window,
		threshold: threshold,
		now:       time.Now,
		logger:    logger.Named("spamguard"),
		history:   make(map[key][]time.Time),
	}
}

// Check records one invocation and reports whether the count inside the
// window now exceeds the threshold.
func (g *Guard) Check(userID, command string) Result {
	now := g.now()
	k := key{userID: userID, command: command}

	g.mu.Lock()
	defer g.mu.Unlock()

	stamps := prune(g.history[k], now.Add(-g.window))
	stamps = append(stamps, now)
	g.history[k] = stamps

	return Result{IsSpam: len(stamps) > g.threshold, Count: len(stamps)}
}

// ClearUserHistory forgets every command history for userID.
func (g *Guard) ClearUserHistory(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k := range g.history {
		if k.userID == userID {
			delete(g.history, k)
		}
	}
}

// Cleanup drops keys with no invocation inside the window.
func (g *Guard) Cleanup() int {
	cutoff := g.now().Add(-g.window)

	g.mu.Lock()
	defer g.mu.Unlock()
	removed := 0
	for k, stamps := range g.history {
		kept := prune(stamps, cutoff)
		if len(kept) == 0 {
			delete(g.history, k)
			removed++
			continue
		}
		g.history[k] = kept
	}
	return removed
}

// Run calls Cleanup every interval until ctx is done.
func (g *Guard) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := g.Cleanup(); n > 0 {
				g.logger.Debug("purged stale spam history", zap.Int("keys", n))
			}
		}
	}
}

func (g *Guard) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.history)
}

// prune keeps timestamps strictly after cutoff; stamps are in ascending order.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}
