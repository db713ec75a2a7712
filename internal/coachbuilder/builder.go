package coachbuilder

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/coach"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/config"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/copilot"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/domain"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/filewatch"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/lichess"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/msgcat"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/mutation"
)

// Deps are the collaborators of one engine for the configured mode.
type Deps struct {
	Mode      config.Mode
	Catalog   *msgcat.Catalog
	Assistant *copilot.Client
	Source    domain.SnapshotSource
	Moves     mutation.Feed
	Anchor    mutation.Feed
	Surface   coach.Surface

	Page     *lichess.Page
	Observer *lichess.Observer
	FileFeed *filewatch.Feed

	cfg    *config.AppConfig
	logger *zap.Logger
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d := &Deps{
		Mode:    cfg.Mode,
		Catalog: cat,
		Assistant: copilot.NewClient(cfg.AssistantURL,
			copilot.WithTimeout(cfg.AssistantTimeout),
			copilot.WithProxy(cfg.AssistantProxy),
			copilot.WithLogger(logger.Named("copilot")),
		),
		cfg:    cfg,
		logger: logger,
	}

	switch cfg.Mode {
	case config.ModeFile:
		d.Source = filewatch.NewSource(cfg.SnapshotFile)
		feed, err := filewatch.NewFeed(cfg.SnapshotFile, lichess.RegionMoves, logger.Named("filewatch"))
		if err != nil {
			return nil, err
		}
		d.FileFeed = feed
		d.Moves = feed
	default:
		page, err := lichess.Open(ctx, lichess.PageConfig{
			ControlURL: cfg.BrowserURL,
			URL:        cfg.AnalysisURL,
			Headless:   cfg.Headless,
		}, logger.Named("page"))
		if err != nil {
			return nil, err
		}
		d.Page = page
		d.Source = lichess.NewSnapshotSource(page)
		d.Observer = lichess.NewObserver(page, cfg.PollInterval, logger.Named("observer"))
		d.Moves = d.Observer.Moves()
		d.Anchor = d.Observer.Anchor()

		title, _ := cat.Render("ui.panel_title", nil)
		welcomeTitle, _ := cat.Render("ui.welcome_title", nil)
		welcomeBody, _ := cat.Render("ui.welcome_body", nil)
		d.Surface = lichess.NewPanel(page, title, lichess.NewRenderer(lichess.Welcome{Title: welcomeTitle, Body: welcomeBody}))
	}
	return d, nil
}

// Engine builds the coaching engine over these deps.
func (d *Deps) Engine(cfg coach.Config) (*coach.Engine, error) {
	cfg.Source = d.Source
	cfg.Assistant = d.Assistant
	cfg.Moves = d.Moves
	cfg.Anchor = d.Anchor
	cfg.Surface = d.Surface
	cfg.Catalog = d.Catalog
	cfg.Region = lichess.RegionMoves
	cfg.TrackedAttributes = []string{"class"}
	cfg.SettleDelay = d.cfg.SettleDelay
	cfg.CallTimeout = d.cfg.AssistantTimeout
	if cfg.Logger == nil {
		cfg.Logger = d.logger.Named("coach")
	}
	return coach.New(cfg)
}

// Run drives the change feeds until ctx is done.
func (d *Deps) Run(ctx context.Context) error {
	switch {
	case d.Observer != nil:
		return d.Observer.Run(ctx)
	case d.FileFeed != nil:
		if err := d.FileFeed.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	default:
		<-ctx.Done()
		return nil
	}
}

func (d *Deps) Close() {
	if d.FileFeed != nil {
		d.FileFeed.Stop()
	}
	if d.Page != nil {
		if err := d.Page.Close(); err != nil {
			d.logger.Warn("page_close_failed", zap.Error(err))
		}
	}
}
