package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/config"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/filewatch"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/session"
	"github.com/InvictusNavarchus/lichess-ai-assistant/pkg/coachdto"
)

func fakeAssistant(t *testing.T, reply string) (string, *atomic.Int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var calls atomic.Int32
	srv := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"code":200,"response":{"content":"` + reply + `"}}`)
	}}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return "http://" + ln.Addr().String() + "/v1/ai/copilot", &calls
}

func fileConfig(t *testing.T, assistantURL string) *config.AppConfig {
	t.Helper()
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, filewatch.Write(path, filewatch.File{
		FEN:      "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1",
		PGN:      "1. e4 *",
		Feedback: "Good move",
	}))
	cfg := config.Defaults()
	cfg.Mode = config.ModeFile
	cfg.SnapshotFile = path
	cfg.AssistantURL = assistantURL
	cfg.AssistantTimeout = 5 * time.Second
	return &cfg
}

func TestRunWatchAnswersStdin(t *testing.T) {
	url, calls := fakeAssistant(t, "Fight for the center.")
	var out bytes.Buffer
	in := strings.NewReader("why e4?\n")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, runWatch(ctx, fileConfig(t, url), in, &out, true))

	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, out.String(), "AI Coach:\nFight for the center.")
}

func TestRunWatchRejectsQuestionWhileAnswering(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var calls atomic.Int32
	srv := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
		ctx.SetBodyString(`{"code":200,"response":{"content":"First answer."}}`)
	}}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	var out bytes.Buffer
	in := strings.NewReader("first?\nsecond?\n/clear\n")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, runWatch(ctx, fileConfig(t, "http://"+ln.Addr().String()+"/x"), in, &out, true))

	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, out.String(), "First answer.")
	assert.NotContains(t, out.String(), "in flight")
}

func TestLogRejectionLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	logRejection(logger, "submit", nil)
	logRejection(logger, "submit", session.ErrTurnInFlight)
	logRejection(logger, "clear", fmt.Errorf("reset: %w", session.ErrTurnInFlight))
	logRejection(logger, "submit", session.ErrBlankInput)
	logRejection(logger, "submit", errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 4)
	for _, e := range entries[:3] {
		assert.Equal(t, zapcore.DebugLevel, e.Level)
		assert.Equal(t, "input_rejected", e.Message)
	}
	assert.Equal(t, zapcore.WarnLevel, entries[3].Level)
	assert.Equal(t, "input_failed", entries[3].Message)
}

func TestRunAskExplainsLastMove(t *testing.T) {
	url, calls := fakeAssistant(t, "It develops.")
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, runAsk(ctx, fileConfig(t, url), "", &out, true))
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, out.String(), "It develops.")
}

func TestPrinterWritesEachTurnOnce(t *testing.T) {
	var out bytes.Buffer
	p, err := newPrinter(&out, true)
	require.NoError(t, err)

	views := []coachdto.TurnView{
		{ID: "1", Kind: coachdto.KindUser, Author: "You", Text: "q"},
		{ID: "2", Kind: coachdto.KindLoading, Author: "AI Coach", Text: "Thinking..."},
	}
	p.OnTranscript(views)
	assert.Empty(t, out.String())

	views[1] = coachdto.TurnView{ID: "3", Kind: coachdto.KindAssistant, Author: "AI Coach", Text: "a"}
	p.OnTranscript(views)
	p.OnTranscript(views)
	assert.Equal(t, "AI Coach:\na\n", out.String())
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("COACH_SNAPSHOT_FILE", "")
	t.Setenv("COACH_MODE", "browser")
	root := newRootCmd()
	cmd, _, err := root.Find([]string{"ask"})
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags([]string{"--snapshot-file", "board.yaml", "--assistant-proxy", "https://p/"}))

	f := &flags{snapshotFile: "board.yaml", assistantProxy: "https://p/"}
	cfg, err := f.load(cmd, config.ModeFile)
	require.NoError(t, err)
	assert.Equal(t, config.ModeFile, cfg.Mode)
	assert.Equal(t, "board.yaml", cfg.SnapshotFile)
	assert.Equal(t, "https://p/", cfg.AssistantProxy)
}
