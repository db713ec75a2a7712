package filewatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/domain"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/mutation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestSourceReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, Write(path, File{
		FEN:      startFEN,
		PGN:      "*",
		Feedback: "Good move",
		Comment:  "Another was Nf3",
		Side:     "black",
	}))

	snap, err := NewSource(path).ReadCurrentSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, startFEN, snap.PositionID)
	assert.Equal(t, domain.SideBlack, snap.SideToMove)
	assert.Equal(t, "Good move", snap.LastMoveFeedback)
	assert.Equal(t, "Another was Nf3", snap.LastMoveComment)
}

func TestSourceFallsBackToFENSide(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fen: "+startFEN+"\n"), 0o644))
	snap, err := NewSource(path).ReadCurrentSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, domain.SideWhite, snap.SideToMove)
}

func TestSourceUnavailable(t *testing.T) {
	dir := t.TempDir()
	snap, err := NewSource(filepath.Join(dir, "missing.yaml")).ReadCurrentSnapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)

	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pgn: \"1. e4\"\n"), 0o644))
	snap, err = NewSource(path).ReadCurrentSnapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("fen: [unterminated"), 0o644))
	_, err = NewSource(bad).ReadCurrentSnapshot(context.Background())
	assert.Error(t, err)
}

func TestFeedPublishesEditsOfWatchedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "board.yaml")
	feed, err := NewFeed(path, "moves", nil)
	require.NoError(t, err)

	got := make(chan mutation.Batch, 16)
	feed.Subscribe(func(b mutation.Batch) { got <- b })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, feed.Start(ctx))
	defer feed.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644))
	require.NoError(t, Write(path, File{FEN: startFEN}))

	select {
	case b := <-got:
		require.NotEmpty(t, b)
		assert.Equal(t, mutation.Structural, b[0].Kind)
		assert.Equal(t, "moves", b[0].Target)
	case <-time.After(3 * time.Second):
		t.Fatal("no batch for watched file")
	}
}

func TestFeedStopIsIdempotentBeforeStart(t *testing.T) {
	feed, err := NewFeed(filepath.Join(t.TempDir(), "x.yaml"), "moves", nil)
	require.NoError(t, err)
	feed.Stop()
}
