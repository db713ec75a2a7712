package lichess

import (
	"context"
	"strings"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/chess"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/domain"
)

type rawSnapshot struct {
	FEN      string `json:"fen"`
	PGN      string `json:"pgn"`
	Feedback string `json:"feedback"`
	Comment  string `json:"comment"`
	Side     string `json:"side"`
}

// SnapshotSource reads the analysis board's copyables and practice box.
type SnapshotSource struct {
	ev Evaluator
}

func NewSnapshotSource(ev Evaluator) *SnapshotSource { return &SnapshotSource{ev: ev} }

func (s *SnapshotSource) ReadCurrentSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	var raw *rawSnapshot
	if err := s.ev.Eval(ctx, readSnapshotJS, &raw); err != nil {
		return nil, err
	}
	if raw == nil || strings.TrimSpace(raw.FEN) == "" {
		return nil, nil
	}
	snap := chess.Normalize(domain.Snapshot{
		PositionID:       raw.FEN,
		GameRecord:       raw.PGN,
		LastMoveFeedback: strings.TrimSpace(raw.Feedback),
		LastMoveComment:  strings.TrimSpace(raw.Comment),
		SideToMove:       domain.ParseSide(raw.Side),
	})
	return &snap, nil
}

var _ domain.SnapshotSource = (*SnapshotSource)(nil)
