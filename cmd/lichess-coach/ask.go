package main

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/coach"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/coachbuilder"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/config"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/obslog"
	"github.com/InvictusNavarchus/lichess-ai-assistant/pkg/coachdto"
)

func newAskCmd(f *flags) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask once about a snapshot file; without a question the last move is explained",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd, config.ModeFile)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return runAsk(ctx, cfg, strings.Join(args, " "), cmd.OutOrStdout(), plain)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print the reply without markdown rendering")
	return cmd
}

var errAskFailed = errors.New("assistant returned an error")

func runAsk(ctx context.Context, cfg *config.AppConfig, question string, out io.Writer, plain bool) error {
	pr, err := newPrinter(out, plain)
	if err != nil {
		return err
	}
	deps, err := coachbuilder.New(ctx, cfg, obslog.L())
	if err != nil {
		return err
	}
	defer deps.Close()

	var last coachdto.TurnView
	engine, err := deps.Engine(coach.Config{OnTranscript: func(v []coachdto.TurnView) {
		pr.OnTranscript(v)
		if len(v) > 0 {
			last = v[len(v)-1]
		}
	}})
	if err != nil {
		return err
	}
	defer engine.Close()
	if err := engine.Start(ctx); err != nil {
		return err
	}

	if strings.TrimSpace(question) == "" {
		err = engine.AskShortcut(ctx)
	} else {
		err = engine.Submit(ctx, question)
	}
	if err != nil {
		return err
	}
	engine.Wait()
	if last.Kind == coachdto.KindError {
		return errAskFailed
	}
	return nil
}
