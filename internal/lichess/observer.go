package lichess

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/mutation"
)

type UIEventKind string

const (
	UISubmit   UIEventKind = "submit"
	UIClear    UIEventKind = "clear"
	UIShortcut UIEventKind = "shortcut"
)

// UIEvent is an interaction with the panel controls.
type UIEvent struct {
	Kind UIEventKind `json:"type"`
	Text string      `json:"text,omitempty"`
}

type drained struct {
	Moves  mutation.Batch `json:"moves"`
	Anchor mutation.Batch `json:"anchor"`
	UI     []UIEvent      `json:"ui"`

	Installed bool `json:"installed"`
}

// Observer relays page mutations and panel events by polling buffers filled
// by an in-page MutationObserver.
type Observer struct {
	ev       Evaluator
	interval time.Duration
	logger   *zap.Logger

	moves  *mutation.Hub
	anchor *mutation.Hub
	onUI   func(UIEvent)
}

func NewObserver(ev Evaluator, interval time.Duration, logger *zap.Logger) *Observer {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{
		ev:       ev,
		interval: interval,
		logger:   logger,
		moves:    mutation.NewHub(),
		anchor:   mutation.NewHub(),
	}
}

// Moves is the feed for the move-history region.
func (o *Observer) Moves() mutation.Feed { return o.moves }

// Anchor is the feed for the region hosting the panel.
func (o *Observer) Anchor() mutation.Feed { return o.anchor }

// OnUIEvent sets the handler for panel events. Call before Run.
func (o *Observer) OnUIEvent(fn func(UIEvent)) { o.onUI = fn }

func (o *Observer) Install(ctx context.Context) error {
	return o.ev.Eval(ctx, installObserverJS, nil)
}

// Run drains the page buffers until ctx is done, then disconnects the
// in-page observer.
func (o *Observer) Run(ctx context.Context) error {
	if err := o.Install(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			dctx, cancel := context.WithTimeout(context.Background(), time.Second)
			_ = o.ev.Eval(dctx, disconnectObserverJS, nil)
			cancel()
			return nil
		case <-ticker.C:
			if err := o.Drain(ctx); err != nil && ctx.Err() == nil {
				o.logger.Debug("observer_drain_failed", zap.Error(err))
			}
		}
	}
}

// Drain performs one poll and dispatches whatever was buffered.
func (o *Observer) Drain(ctx context.Context) error {
	var d drained
	if err := o.ev.Eval(ctx, drainJS, &d); err != nil {
		return err
	}
	if !d.Installed {
		// page was reloaded
		if err := o.Install(ctx); err != nil {
			return err
		}
	}
	o.moves.Publish(d.Moves)
	o.anchor.Publish(d.Anchor)
	if o.onUI != nil {
		for _, e := range d.UI {
			o.onUI(e)
		}
	}
	return nil
}
