package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/coach"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/coachbuilder"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/config"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/obslog"
)

const (
	cmdClear   = "/clear"
	cmdExplain = "/explain"
	cmdQuit    = "/quit"
)

func newWatchCmd(f *flags) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Coach over a snapshot file; questions are read from stdin",
		Long: "Each stdin line is sent as a question. " + cmdClear + " resets the conversation, " +
			cmdExplain + " explains the last move and " + cmdQuit + " exits.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load(cmd, config.ModeFile)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return runWatch(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout(), plain)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print replies without markdown rendering")
	return cmd
}

func runWatch(ctx context.Context, cfg *config.AppConfig, in io.Reader, out io.Writer, plain bool) error {
	logger := obslog.Named("watch")
	pr, err := newPrinter(out, plain)
	if err != nil {
		return err
	}
	deps, err := coachbuilder.New(ctx, cfg, obslog.L())
	if err != nil {
		return err
	}
	defer deps.Close()

	engine, err := deps.Engine(coach.Config{OnTranscript: pr.OnTranscript})
	if err != nil {
		return err
	}
	defer engine.Close()
	if err := engine.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return deps.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					engine.Wait()
					return nil
				}
				line = strings.TrimSpace(line)
				switch line {
				case "":
				case cmdQuit:
					return nil
				case cmdClear:
					logRejection(logger, "clear", engine.Reset())
				case cmdExplain:
					logRejection(logger, "shortcut", engine.AskShortcut(gctx))
				default:
					logRejection(logger, "submit", engine.Submit(gctx, line))
				}
			}
		}
	})
	return g.Wait()
}
