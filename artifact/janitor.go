package artifact

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// StartJanitor periodically removes files in the working directory that are
// older than lifetime: artifacts never collected and leftovers of crashed jobs.
func (m *Manager) StartJanitor(ctx context.Context, lifetime time.Duration) {
	if lifetime <= 0 {
		return
	}
	go func() {
		// Check 4 times per lifetime.
		ticker := time.NewTicker(lifetime / 4)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				m.logger.Debug("janitor shutting down")
				return
			case <-ticker.C:
				m.Sweep(time.Now().Add(-lifetime))
			}
		}
	}()
}

// Sweep removes regular files last modified before cutoff and returns how many
// were removed.
func (m *Manager) Sweep(cutoff time.Time) int {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		m.logger.Warn("could not list working directory", "dir", m.dir, "error", err)
		return 0
	}

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(m.dir, e.Name())
		m.logger.Info("removing stale artifact", "path", path, "age", time.Since(info.ModTime()).Round(time.Second))
		m.Cleanup(path)
		removed++
	}
	return removed
}
