package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/coach"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/coachbuilder"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/config"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/lichess"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/obslog"
)

func newRunCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Open the analysis board and host the coach panel in the page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load(cmd, config.ModeBrowser)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return runBrowser(ctx, cfg)
		},
	}
}

func runBrowser(ctx context.Context, cfg *config.AppConfig) error {
	logger := obslog.Named("run")
	deps, err := coachbuilder.New(ctx, cfg, obslog.L())
	if err != nil {
		return err
	}
	defer deps.Close()

	engine, err := deps.Engine(coach.Config{})
	if err != nil {
		return err
	}
	defer engine.Close()

	deps.Observer.OnUIEvent(func(ev lichess.UIEvent) {
		switch ev.Kind {
		case lichess.UISubmit:
			logRejection(logger, "submit", engine.Submit(ctx, ev.Text))
		case lichess.UIShortcut:
			logRejection(logger, "shortcut", engine.AskShortcut(ctx))
		case lichess.UIClear:
			logRejection(logger, "clear", engine.Reset())
		default:
			logger.Debug("ui_event_ignored", zap.String("kind", string(ev.Kind)))
		}
	})
	if err := engine.Start(ctx); err != nil {
		return err
	}
	logger.Info("coach_ready", zap.String("url", cfg.AnalysisURL))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return deps.Run(gctx) })
	return g.Wait()
}
