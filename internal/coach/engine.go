// Package coach assembles the coaching engine: one History Stack and one
// Conversation Session, fed by the change detector and kept visible by the
// presence guard.
package coach

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/detector"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/domain"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/guard"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/history"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/msgcat"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/mutation"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/prompt"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/session"
	"github.com/InvictusNavarchus/lichess-ai-assistant/pkg/coachdto"
)

// Surface is a rendered panel hosting the transcript.
type Surface interface {
	guard.Surface
	Attach(ctx context.Context) error
	Expand(ctx context.Context) error
	Render(ctx context.Context, views []coachdto.TurnView) error
}

type Config struct {
	Source    domain.SnapshotSource
	Assistant session.Assistant
	// Moves drives the change detector. Anchor drives the presence guard and
	// is only used together with Surface.
	Moves   mutation.Feed
	Anchor  mutation.Feed
	Surface Surface

	Catalog *msgcat.Catalog

	Region            string
	TrackedAttributes []string
	SettleDelay       time.Duration
	CallTimeout       time.Duration
	SurfaceTimeout    time.Duration

	// OnTranscript receives every re-render, with or without a Surface.
	OnTranscript func([]coachdto.TurnView)

	Logger *zap.Logger
}

type Engine struct {
	cfg      Config
	logger   *zap.Logger
	authors  coachdto.Authors
	stack    *history.Stack
	detector *detector.Detector
	guard    *guard.Guard
	session  *session.Session

	mu      sync.Mutex
	started bool
	closed  bool
	unsubs  []func()
}

func New(cfg Config) (*Engine, error) {
	if cfg.Source == nil {
		return nil, errors.New("coach: snapshot source is required")
	}
	if cfg.Assistant == nil {
		return nil, errors.New("coach: assistant is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = msgcat.Default()
	}
	if cfg.SurfaceTimeout <= 0 {
		cfg.SurfaceTimeout = 3 * time.Second
	}
	composer, err := prompt.NewComposer(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	userName, _ := cfg.Catalog.Render("ui.author_user", nil)
	assistantName, _ := cfg.Catalog.Render("ui.author_assistant", nil)

	e := &Engine{
		cfg:     cfg,
		logger:  cfg.Logger,
		authors: coachdto.Authors{User: userName, Assistant: assistantName},
		stack:   history.NewStack(),
	}
	e.detector = detector.New(cfg.Source, e.stack, detector.Config{
		SettleDelay:       cfg.SettleDelay,
		Region:            cfg.Region,
		TrackedAttributes: cfg.TrackedAttributes,
	}, cfg.Logger.Named("detector"))
	if cfg.Surface != nil {
		e.guard = guard.New(cfg.Surface, cfg.SurfaceTimeout, cfg.Logger.Named("guard"))
	}

	s, err := session.New(session.Config{
		Source:      cfg.Source,
		Positions:   e.stack,
		Assistant:   cfg.Assistant,
		Composer:    composer,
		Catalog:     cfg.Catalog,
		CallTimeout: cfg.CallTimeout,
		OnChange:    e.render,
		OnSubmit:    e.expand,
		Logger:      cfg.Logger.Named("session"),
	})
	if err != nil {
		return nil, err
	}
	e.session = s
	return e, nil
}

// Start attaches the surface, renders the empty transcript, seeds the stack
// with the current position and subscribes to both feeds.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return session.ErrClosed
	}
	if e.started {
		return nil
	}
	if e.cfg.Surface != nil {
		if err := e.cfg.Surface.Attach(ctx); err != nil {
			return err
		}
	}
	e.render(nil)
	e.detector.Sync(ctx)

	if e.cfg.Moves != nil {
		e.unsubs = append(e.unsubs, e.cfg.Moves.Subscribe(e.detector.OnExternalMutation))
	}
	if e.cfg.Anchor != nil && e.guard != nil {
		e.unsubs = append(e.unsubs, e.cfg.Anchor.Subscribe(e.guard.OnMutation))
	}
	e.started = true
	e.logger.Info("engine_started", zap.Bool("surface", e.cfg.Surface != nil))
	return nil
}

// Close unsubscribes both feeds, stops pending reads and closes the session.
// An outstanding reply is discarded.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	unsubs := e.unsubs
	e.unsubs = nil
	e.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	e.detector.Close()
	e.session.Close()
	e.logger.Info("engine_closed")
}

func (e *Engine) Submit(ctx context.Context, text string) error { return e.session.Submit(ctx, text) }

func (e *Engine) AskShortcut(ctx context.Context) error { return e.session.AskShortcut(ctx) }

// Reset clears the transcript and the History Stack when no reply is pending.
func (e *Engine) Reset() error {
	if err := e.session.Reset(); err != nil {
		return err
	}
	e.detector.Forget()
	return nil
}

// Wait blocks until no reply is pending.
func (e *Engine) Wait() { e.session.Wait() }

func (e *Engine) Transcript() []domain.Turn { return e.session.Transcript() }

func (e *Engine) InFlight() bool { return e.session.InFlight() }

// Positions lists the History Stack, oldest first.
func (e *Engine) Positions() []string { return e.stack.All() }

func (e *Engine) GuardStats() guard.Stats {
	if e.guard == nil {
		return guard.Stats{}
	}
	return e.guard.Stats()
}

func (e *Engine) render(turns []domain.Turn) {
	views := coachdto.ToViews(turns, e.authors)
	if e.cfg.Surface != nil {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.SurfaceTimeout)
		if err := e.cfg.Surface.Render(ctx, views); err != nil {
			e.logger.Warn("surface_render_failed", zap.Error(err))
		}
		cancel()
	}
	if e.cfg.OnTranscript != nil {
		e.cfg.OnTranscript(views)
	}
}

func (e *Engine) expand() {
	if e.cfg.Surface == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.SurfaceTimeout)
	defer cancel()
	if err := e.cfg.Surface.Expand(ctx); err != nil {
		e.logger.Warn("surface_expand_failed", zap.Error(err))
	}
}
