package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/config"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/obslog"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/session"
)

type flags struct {
	snapshotFile   string
	analysisURL    string
	browserURL     string
	headless       bool
	assistantURL   string
	assistantProxy string
	messagesDir    string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "lichess-coach",
		Short:         "AI chess coach for the lichess analysis board",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return obslog.InitFromEnv()
		},
		PersistentPostRun: func(*cobra.Command, []string) { obslog.Sync() },
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.snapshotFile, "snapshot-file", "", "YAML snapshot file (file mode)")
	pf.StringVar(&f.analysisURL, "analysis-url", "", "analysis board URL (browser mode)")
	pf.StringVar(&f.browserURL, "browser-url", "", "DevTools control URL of a running browser")
	pf.BoolVar(&f.headless, "headless", false, "launch the browser headless")
	pf.StringVar(&f.assistantURL, "assistant-url", "", "assistant endpoint")
	pf.StringVar(&f.assistantProxy, "assistant-proxy", "", "prefix prepended to assistant requests")
	pf.StringVar(&f.messagesDir, "messages-dir", "", "directory with message overrides")

	root.AddCommand(newRunCmd(f), newWatchCmd(f), newAskCmd(f))
	return root
}

// load reads the environment, applies changed flags and forces mode.
func (f *flags) load(cmd *cobra.Command, mode config.Mode) (*config.AppConfig, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("snapshot-file", &cfg.SnapshotFile, f.snapshotFile)
	set("analysis-url", &cfg.AnalysisURL, f.analysisURL)
	set("browser-url", &cfg.BrowserURL, f.browserURL)
	set("assistant-url", &cfg.AssistantURL, f.assistantURL)
	set("assistant-proxy", &cfg.AssistantProxy, f.assistantProxy)
	set("messages-dir", &cfg.MessagesDir, f.messagesDir)
	if cmd.Flags().Changed("headless") {
		cfg.Headless = f.headless
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// logRejection keeps expected session refusals out of the error path.
func logRejection(logger *zap.Logger, action string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, session.ErrBlankInput), errors.Is(err, session.ErrTurnInFlight):
		logger.Debug("input_rejected", zap.String("action", action), zap.Error(err))
	default:
		logger.Warn("input_failed", zap.String("action", action), zap.Error(err))
	}
}
