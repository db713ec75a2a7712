package detector

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/domain"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/history"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/mutation"
)

const (
	defaultSettleDelay = 150 * time.Millisecond
	defaultReadTimeout = 5 * time.Second
)

type Config struct {
	// SettleDelay is how long to wait after a relevant batch before reading.
	SettleDelay time.Duration
	ReadTimeout time.Duration
	// Region restricts structural entries to one target; empty accepts any.
	Region string
	// TrackedAttributes restricts attribute entries; empty accepts any.
	TrackedAttributes []string
}

// Detector turns change notifications into History Stack pushes.
type Detector struct {
	src    domain.SnapshotSource
	stack  *history.Stack
	cfg    Config
	logger *zap.Logger

	tracked map[string]struct{}

	mu         sync.Mutex
	timer      *time.Timer
	pending    bool
	closed     bool
	lastPushed string

	// serialises read+push so overlapping windows cannot reorder pushes
	readMu sync.Mutex
}

func New(src domain.SnapshotSource, stack *history.Stack, cfg Config, logger *zap.Logger) *Detector {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	tracked := make(map[string]struct{}, len(cfg.TrackedAttributes))
	for _, a := range cfg.TrackedAttributes {
		tracked[a] = struct{}{}
	}
	return &Detector{src: src, stack: stack, cfg: cfg, logger: logger, tracked: tracked}
}

// OnExternalMutation arms one settle window for a relevant batch. Batches that
// arrive while a window is pending are coalesced into it.
func (d *Detector) OnExternalMutation(batch mutation.Batch) {
	if !d.relevant(batch) {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.pending {
		return
	}
	d.pending = true
	d.timer = time.AfterFunc(d.cfg.SettleDelay, d.settled)
}

func (d *Detector) relevant(batch mutation.Batch) bool {
	for _, e := range batch {
		switch e.Kind {
		case mutation.Structural:
			if d.cfg.Region == "" || e.Target == d.cfg.Region {
				return true
			}
		case mutation.Attribute:
			if len(d.tracked) == 0 {
				return true
			}
			if _, ok := d.tracked[e.Attribute]; ok {
				return true
			}
		}
	}
	return false
}

func (d *Detector) settled() {
	d.mu.Lock()
	d.pending = false
	d.timer = nil
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.ReadTimeout)
	defer cancel()
	d.Sync(ctx)
}

// Sync reads the source now and pushes the position if it changed. It is also
// used once at startup to seed the stack.
func (d *Detector) Sync(ctx context.Context) {
	d.readMu.Lock()
	defer d.readMu.Unlock()
	if d.isClosed() {
		return
	}

	snap, err := d.src.ReadCurrentSnapshot(ctx)
	if err != nil {
		d.logger.Debug("snapshot_read_failed", zap.Error(err))
		return
	}
	if snap == nil || snap.PositionID == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || snap.PositionID == d.lastPushed {
		return
	}
	d.lastPushed = snap.PositionID
	d.stack.Push(snap.PositionID)
	d.logger.Debug("position_pushed", zap.String("position_id", snap.PositionID), zap.Int("depth", d.stack.Len()))
}

func (d *Detector) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Forget drops the last pushed id so that the next read re-seeds a cleared stack.
func (d *Detector) Forget() {
	d.mu.Lock()
	d.lastPushed = ""
	d.mu.Unlock()
}

// Close stops any pending window and waits for a running read to finish.
func (d *Detector) Close() {
	d.mu.Lock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
	d.mu.Unlock()

	d.readMu.Lock()
	d.readMu.Unlock()
}
