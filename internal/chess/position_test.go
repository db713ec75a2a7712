package chess

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/domain"
)

const afterE4 = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"

func TestCanonicalFENCollapsesWhitespace(t *testing.T) {
	fen, ok := CanonicalFEN("  rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR   b KQkq e3 0 1 ")
	require.True(t, ok)
	assert.Contains(t, fen, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq")
}

func TestCanonicalFENRejectsGarbage(t *testing.T) {
	_, ok := CanonicalFEN("")
	assert.False(t, ok)
	raw, ok := CanonicalFEN("not a fen")
	assert.False(t, ok)
	assert.Equal(t, "not a fen", raw)
}

func TestSideFromFEN(t *testing.T) {
	assert.Equal(t, domain.SideBlack, SideFromFEN(afterE4))
	assert.Equal(t, domain.SideWhite, SideFromFEN("8/8/8/8/8/8/8/K6k w - - 0 1"))
	assert.Equal(t, domain.SideUnknown, SideFromFEN("8/8/8"))
}

func TestDescribeCountsPlies(t *testing.T) {
	info := Describe("1. e4 e5 2. Nf3 Nc6 *")
	assert.Equal(t, 4, info.Plies)
}

func TestDescribeInvalidRecord(t *testing.T) {
	assert.Equal(t, GameInfo{}, Describe(""))
	assert.Equal(t, "", Describe("").Opening())
}

func TestGameInfoOpening(t *testing.T) {
	assert.Equal(t, "C20 King's Pawn", GameInfo{ECOCode: "C20", ECOTitle: "King's Pawn"}.Opening())
	assert.Equal(t, "King's Pawn", GameInfo{ECOTitle: "King's Pawn"}.Opening())
	assert.Equal(t, "C20", GameInfo{ECOCode: "C20"}.Opening())
}

func TestNormalizeFillsSide(t *testing.T) {
	got := Normalize(domain.Snapshot{PositionID: afterE4, SideToMove: domain.SideUnknown})
	assert.Equal(t, domain.SideBlack, got.SideToMove)

	kept := Normalize(domain.Snapshot{PositionID: afterE4, SideToMove: domain.SideWhite})
	assert.Equal(t, domain.SideWhite, kept.SideToMove)
}

func TestOpeningBookBuiltOnce(t *testing.T) {
	first := ecoBook()
	require.NotNil(t, first)
	assert.Same(t, first, ecoBook())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NotEmpty(t, Describe("1. e4 e5 2. Nf3 Nc6 *").ECOCode)
		}()
	}
	wg.Wait()
	assert.Same(t, first, ecoBook())
}
