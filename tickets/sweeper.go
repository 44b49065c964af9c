package tickets

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunSweeper closes overdue pending tickets every interval until ctx ends.
// It sweeps once immediately so tickets that expired while the process was
// down are handled at startup.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	m.logger.Info("auto-close sweeper started", zap.Duration("interval", interval))

	m.AutoCloseOverdue(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.AutoCloseOverdue(ctx)
		}
	}
}
