package guard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/mutation"
)

// Surface is the part of the rendered panel the guard can inspect and repair.
type Surface interface {
	// Present reports whether the surface is attached under its anchor.
	Present(ctx context.Context) (bool, error)
	// Suppressed reports whether the host page marked the surface hidden.
	Suppressed(ctx context.Context) (bool, error)
	Unsuppress(ctx context.Context) error
	// Reattach re-inserts the existing surface instance under the anchor.
	Reattach(ctx context.Context) error
}

// Stats counts repairs performed since construction.
type Stats struct {
	Checks       int
	Unsuppressed int
	Reattached   int
	Errors       int
}

// Guard keeps the surface attached and visible. Check is idempotent and safe to
// call any number of times.
type Guard struct {
	surface Surface
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	stats Stats
}

func New(surface Surface, timeout time.Duration, logger *zap.Logger) *Guard {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{surface: surface, timeout: timeout, logger: logger}
}

// OnMutation is the feed handler for the anchor region.
func (g *Guard) OnMutation(mutation.Batch) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	g.Check(ctx)
}

// Check repairs suppression first, then presence.
func (g *Guard) Check(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stats.Checks++

	present, err := g.surface.Present(ctx)
	if err != nil {
		g.stats.Errors++
		g.logger.Warn("guard_presence_check_failed", zap.Error(err))
		return
	}
	if present {
		suppressed, err := g.surface.Suppressed(ctx)
		if err != nil {
			g.stats.Errors++
			g.logger.Warn("guard_suppression_check_failed", zap.Error(err))
			return
		}
		if suppressed {
			if err := g.surface.Unsuppress(ctx); err != nil {
				g.stats.Errors++
				g.logger.Warn("guard_unsuppress_failed", zap.Error(err))
				return
			}
			g.stats.Unsuppressed++
			g.logger.Info("guard_unsuppressed")
		}
		return
	}

	if err := g.surface.Reattach(ctx); err != nil {
		g.stats.Errors++
		g.logger.Warn("guard_reattach_failed", zap.Error(err))
		return
	}
	g.stats.Reattached++
	g.logger.Info("guard_reattached")

	// a detached node keeps its classes; clear the marker after re-insertion too
	if suppressed, err := g.surface.Suppressed(ctx); err == nil && suppressed {
		if err := g.surface.Unsuppress(ctx); err == nil {
			g.stats.Unsuppressed++
		}
	}
}

func (g *Guard) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}
