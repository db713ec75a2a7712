package chess

import (
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/domain"
)

// ecoBook is built on first use and shared; lookups do not mutate it.
var ecoBook = sync.OnceValue(opening.NewBookECO)

// GameInfo is what can be derived from a game record without an engine.
type GameInfo struct {
	ECOCode  string
	ECOTitle string
	Plies    int
}

// Opening returns "B20 Sicilian Defense" style text, or "" when unknown.
func (g GameInfo) Opening() string {
	code := strings.TrimSpace(g.ECOCode)
	title := strings.TrimSpace(g.ECOTitle)
	switch {
	case code != "" && title != "":
		return code + " " + title
	case title != "":
		return title
	default:
		return code
	}
}

// CanonicalFEN parses raw and re-emits it from the parsed position so that
// whitespace variations of the same FEN map onto one position id.
func CanonicalFEN(raw string) (string, bool) {
	fen := strings.Join(strings.Fields(raw), " ")
	if fen == "" {
		return "", false
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return fen, false
	}
	game := nchess.NewGame(opt)
	return game.Position().String(), true
}

// SideFromFEN reports the side to move encoded in fen.
func SideFromFEN(fen string) domain.Side {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return domain.SideUnknown
	}
	switch fields[1] {
	case "w":
		return domain.SideWhite
	case "b":
		return domain.SideBlack
	default:
		return domain.SideUnknown
	}
}

// Describe replays a PGN game record and looks up its opening.
// Unparseable records yield an empty GameInfo.
func Describe(pgn string) GameInfo {
	if strings.TrimSpace(pgn) == "" {
		return GameInfo{}
	}
	opt, err := nchess.PGN(strings.NewReader(pgn))
	if err != nil {
		return GameInfo{}
	}
	game := nchess.NewGame(opt)
	moves := game.Moves()
	info := GameInfo{Plies: len(moves)}
	if len(moves) == 0 {
		return info
	}
	book := ecoBook()
	if book == nil {
		return info
	}
	if eco := book.Find(moves); eco != nil {
		info.ECOCode = eco.Code()
		info.ECOTitle = eco.Title()
	}
	return info
}

// Normalize canonicalises the position id and fills an unknown side from the FEN.
func Normalize(s domain.Snapshot) domain.Snapshot {
	if fen, ok := CanonicalFEN(s.PositionID); ok {
		s.PositionID = fen
	}
	if s.SideToMove == "" || s.SideToMove == domain.SideUnknown {
		s.SideToMove = SideFromFEN(s.PositionID)
	}
	return s
}
