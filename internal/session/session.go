// Package session holds the conversation state machine: the transcript, the
// single outstanding assistant request and its resolution.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/domain"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/msgcat"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/prompt"
)

var (
	ErrBlankInput   = errors.New("session: blank input")
	ErrTurnInFlight = errors.New("session: a request is already in flight")
	ErrClosed       = errors.New("session: closed")
)

const (
	defaultCallTimeout = 60 * time.Second
	defaultReadTimeout = 5 * time.Second
)

// Positions is the History Stack as seen by the session.
type Positions interface {
	prompt.Positions
	Clear()
}

type Config struct {
	Source    domain.SnapshotSource
	Positions Positions
	Assistant Assistant
	Composer  *prompt.Composer
	Catalog   *msgcat.Catalog

	CallTimeout time.Duration
	ReadTimeout time.Duration

	// OnChange receives a copy of the transcript after every mutation. It runs
	// with the session locked and must not call back into the session.
	OnChange func([]domain.Turn)
	// OnSubmit runs once per accepted submission, before the request is sent.
	OnSubmit func()

	Logger *zap.Logger
	Now    func() time.Time
	NewID  func() string
}

type Session struct {
	cfg        Config
	dispatcher *dispatcher
	logger     *zap.Logger

	loadingText  string
	fallbackText string

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu         sync.Mutex
	transcript []domain.Turn
	inFlight   bool
	generation uint64
	closed     bool
}

func New(cfg Config) (*Session, error) {
	if cfg.Source == nil {
		return nil, errors.New("session: snapshot source is required")
	}
	if cfg.Positions == nil {
		return nil, errors.New("session: positions are required")
	}
	if cfg.Assistant == nil {
		return nil, errors.New("session: assistant is required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = msgcat.Default()
	}
	if cfg.Composer == nil {
		c, err := prompt.NewComposer(cfg.Catalog)
		if err != nil {
			return nil, err
		}
		cfg.Composer = c
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	loading, err := cfg.Catalog.Render("ui.loading", nil)
	if err != nil {
		return nil, err
	}
	fallback, err := cfg.Catalog.Render("shortcut.fallback", nil)
	if err != nil {
		return nil, err
	}
	for _, key := range []string{"error.turn", "error.network", "error.parse"} {
		if _, err := cfg.Catalog.Render(key, map[string]string{"Reason": "x"}); err != nil {
			return nil, err
		}
	}
	if _, err := cfg.Catalog.Render("error.status", map[string]int{"Status": 500}); err != nil {
		return nil, err
	}
	if _, err := cfg.Catalog.Render("error.unexpected_format", nil); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:          cfg,
		dispatcher:   &dispatcher{assistant: cfg.Assistant, timeout: cfg.CallTimeout, logger: cfg.Logger},
		logger:       cfg.Logger,
		loadingText:  loading,
		fallbackText: fallback,
		baseCtx:      ctx,
		cancel:       cancel,
	}, nil
}

// Submit sends text with the current board context. Blank text and
// submissions while a request is outstanding are rejected without touching
// the transcript.
func (s *Session) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrBlankInput
	}
	if err := s.precheck(); err != nil {
		return err
	}
	snap := s.readSnapshot(ctx)
	return s.submit(snap, text)
}

// AskShortcut asks for an explanation of the last move. Without board data it
// records an error turn instead of calling the assistant.
func (s *Session) AskShortcut(ctx context.Context) error {
	if err := s.precheck(); err != nil {
		return err
	}
	snap := s.readSnapshot(ctx)
	if snap == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return ErrClosed
		}
		if s.inFlight {
			return ErrTurnInFlight
		}
		s.appendLocked(domain.Turn{Role: domain.RoleAssistant, Text: s.fallbackText, IsError: true})
		s.logger.Info("shortcut_no_snapshot")
		return nil
	}
	return s.submit(snap, s.cfg.Composer.BuildShortcutPrompt(snap))
}

// Reset clears the transcript and the History Stack. It is refused while a
// request is outstanding.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.inFlight {
		return ErrTurnInFlight
	}
	s.transcript = nil
	s.generation++
	s.cfg.Positions.Clear()
	s.logger.Info("session_reset", zap.Uint64("generation", s.generation))
	s.notifyLocked()
	return nil
}

// Close drops any outstanding resolution and waits for the dispatch goroutine.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

// Wait blocks until no dispatch is running.
func (s *Session) Wait() { s.wg.Wait() }

func (s *Session) Transcript() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

func (s *Session) precheck() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.inFlight {
		return ErrTurnInFlight
	}
	return nil
}

func (s *Session) readSnapshot(ctx context.Context) *domain.Snapshot {
	if ctx == nil {
		ctx = context.Background()
	}
	rctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()
	snap, err := s.cfg.Source.ReadCurrentSnapshot(rctx)
	if err != nil {
		s.logger.Warn("snapshot_read_failed", zap.Error(err))
		return nil
	}
	return snap
}

func (s *Session) submit(snap *domain.Snapshot, text string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.inFlight {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	system := s.cfg.Composer.BuildSystemPrompt(snap, s.cfg.Positions)
	full := s.cfg.Composer.BuildTurnPrompt(system, s.transcript, text)

	s.transcript = append(s.transcript, s.newTurn(domain.Turn{Role: domain.RoleUser, Text: text}))
	placeholder := s.newTurn(domain.Turn{Role: domain.RoleAssistant, Text: s.loadingText, IsPlaceholder: true})
	s.transcript = append(s.transcript, placeholder)
	s.inFlight = true
	gen := s.generation
	requestID := uuid.NewString()
	s.notifyLocked()
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("turn_submitted",
		zap.String("request_id", requestID),
		zap.String("turn_id", placeholder.ID),
		zap.Uint64("generation", gen),
		zap.Int("prompt_len", len(full)),
	)
	if s.cfg.OnSubmit != nil {
		s.cfg.OnSubmit()
	}
	go func() {
		defer s.wg.Done()
		s.dispatcher.run(s.baseCtx, requestID, full, func(out outcome) {
			s.resolve(gen, out)
		})
	}()
	return nil
}

func (s *Session) resolve(gen uint64, out outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation || !s.inFlight {
		s.logger.Debug("resolution_dropped", zap.Uint64("generation", gen))
		return
	}
	s.removePlaceholderLocked()
	s.inFlight = false
	if out.ok {
		s.appendLocked(domain.Turn{Role: domain.RoleAssistant, Text: out.content})
		return
	}
	s.appendLocked(domain.Turn{Role: domain.RoleAssistant, Text: s.failureText(out), IsError: true})
}

func (s *Session) failureText(out outcome) string {
	var (
		text string
		err  error
	)
	switch out.kind {
	case failureNetwork:
		text, err = s.cfg.Catalog.Render("error.network", map[string]string{"Reason": out.reason})
	case failureFormat:
		var reason string
		reason, err = s.cfg.Catalog.Render("error.unexpected_format", nil)
		if err == nil {
			text, err = s.cfg.Catalog.Render("error.turn", map[string]string{"Reason": reason})
		}
	case failureStatus:
		text, err = s.cfg.Catalog.Render("error.status", map[string]int{"Status": out.status})
	default:
		text, err = s.cfg.Catalog.Render("error.parse", map[string]string{"Reason": out.reason})
	}
	if err != nil {
		return "Error: " + out.reason
	}
	return text
}

func (s *Session) removePlaceholderLocked() {
	kept := s.transcript[:0]
	for _, t := range s.transcript {
		if !t.IsPlaceholder {
			kept = append(kept, t)
		}
	}
	s.transcript = kept
}

func (s *Session) appendLocked(t domain.Turn) {
	s.transcript = append(s.transcript, s.newTurn(t))
	s.notifyLocked()
}

func (s *Session) newTurn(t domain.Turn) domain.Turn {
	t.ID = s.cfg.NewID()
	t.CreatedAt = s.cfg.Now()
	return t
}

func (s *Session) copyLocked() []domain.Turn {
	out := make([]domain.Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) notifyLocked() {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange(s.copyLocked())
	}
}
