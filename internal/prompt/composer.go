// Package prompt composes the text sent to the assistant. Every function here
// is pure: output depends only on the arguments and the message catalog.
package prompt

import (
	"fmt"
	"strings"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/chess"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/domain"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/msgcat"
)

const notAvailable = "N/A"

// Positions is the read side of the history stack.
type Positions interface {
	Newest() (string, bool)
	SecondNewest() (string, bool)
}

type Composer struct {
	cat       *msgcat.Catalog
	goodLabel string
}

type systemData struct {
	FEN         string
	AnalyzedFEN string
	Side        string
	Feedback    string
	Comment     string
	Opening     string
	PGN         string
}

type shortcutData struct {
	Feedback string
	Comment  string
	Side     string
	Move     string
}

var requiredKeys = []string{
	"prompt.good_label", "prompt.system_generic", "prompt.system", "prompt.history_header",
	"prompt.user_label", "prompt.assistant_label",
	"shortcut.fallback", "shortcut.intro", "shortcut.good_why", "shortcut.good_alternative",
	"shortcut.good_other", "shortcut.bad_why", "shortcut.bad_suggested", "shortcut.bad_other",
	"shortcut.plan", "shortcut.outro",
}

// NewComposer checks that every template renders against sample data so that
// composition never fails at runtime.
func NewComposer(cat *msgcat.Catalog) (*Composer, error) {
	if cat == nil {
		cat = msgcat.Default()
	}
	sys := systemData{FEN: "x", AnalyzedFEN: "x", Side: "x", Feedback: "x", Comment: "x", Opening: "x", PGN: "x"}
	sc := shortcutData{Feedback: "x", Comment: "x", Side: "x", Move: "x"}
	for _, key := range requiredKeys {
		var data any = sc
		if strings.HasPrefix(key, "prompt.") {
			data = sys
		}
		if _, err := cat.Render(key, data); err != nil {
			return nil, fmt.Errorf("prompt catalog: %w", err)
		}
	}
	label, _ := cat.Text("prompt.good_label")
	return &Composer{cat: cat, goodLabel: strings.TrimSpace(label)}, nil
}

func (c *Composer) render(key string, data any) string {
	out, err := c.cat.Render(key, data)
	if err != nil {
		return ""
	}
	return out
}

// GoodLabel is the feedback text the source uses for a good move.
func (c *Composer) GoodLabel() string { return c.goodLabel }

// BuildSystemPrompt embeds the snapshot and the analyzed position. The analyzed
// position is the second-newest stack entry, falling back to the newest and then
// to the snapshot itself.
func (c *Composer) BuildSystemPrompt(snap *domain.Snapshot, positions Positions) string {
	if snap == nil {
		return c.render("prompt.system_generic", nil)
	}
	analyzed := snap.PositionID
	if positions != nil {
		if id, ok := positions.SecondNewest(); ok {
			analyzed = id
		} else if id, ok := positions.Newest(); ok {
			analyzed = id
		}
	}
	return c.render("prompt.system", systemData{
		FEN:         orNA(snap.PositionID),
		AnalyzedFEN: orNA(analyzed),
		Side:        sideLabel(snap.SideToMove),
		Feedback:    orNA(snap.LastMoveFeedback),
		Comment:     orNA(snap.LastMoveComment),
		Opening:     chess.Describe(snap.GameRecord).Opening(),
		PGN:         snap.GameRecord,
	})
}

// BuildTurnPrompt serialises the transcript as it stands, without the turn
// being composed, and appends newUserText as the final line.
func (c *Composer) BuildTurnPrompt(system string, transcript []domain.Turn, newUserText string) string {
	userLabel := c.render("prompt.user_label", nil)
	assistantLabel := c.render("prompt.assistant_label", nil)

	lines := make([]string, 0, len(transcript))
	for _, t := range transcript {
		if t.IsPlaceholder {
			continue
		}
		label := assistantLabel
		if t.Role == domain.RoleUser {
			label = userLabel
		}
		lines = append(lines, label+": "+t.Text)
	}

	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\n")
	if len(lines) > 0 {
		b.WriteString(c.render("prompt.history_header", nil))
		b.WriteString("\n")
		b.WriteString(strings.Join(lines, "\n\n"))
		b.WriteString("\n\n")
	}
	b.WriteString(userLabel)
	b.WriteString(": ")
	b.WriteString(newUserText)
	return b.String()
}

// BuildShortcutPrompt asks for an explanation of the last move.
func (c *Composer) BuildShortcutPrompt(snap *domain.Snapshot) string {
	if snap == nil {
		return c.render("shortcut.fallback", nil)
	}
	data := shortcutData{
		Feedback: orNA(snap.LastMoveFeedback),
		Comment:  orNA(snap.LastMoveComment),
		Side:     sideLabel(snap.SideToMove),
	}
	comment := snap.LastMoveComment

	sections := []string{c.render("shortcut.intro", data)}
	if strings.TrimSpace(snap.LastMoveFeedback) == c.goodLabel {
		sections = append(sections, c.render("shortcut.good_why", data))
		if _, alt, ok := strings.Cut(comment, "Another was "); ok {
			data.Move = strings.TrimSpace(alt)
			sections = append(sections, c.render("shortcut.good_alternative", data))
		} else {
			sections = append(sections, c.render("shortcut.good_other", data))
		}
	} else {
		sections = append(sections, c.render("shortcut.bad_why", data))
		if strings.Contains(comment, "Best was ") || strings.Contains(comment, "Better was ") {
			move := strings.ReplaceAll(comment, "Best was ", "")
			move = strings.ReplaceAll(move, "Better was ", "")
			data.Move = strings.TrimSpace(move)
			sections = append(sections, c.render("shortcut.bad_suggested", data))
		} else {
			sections = append(sections, c.render("shortcut.bad_other", data))
		}
	}
	sections = append(sections, c.render("shortcut.plan", data), c.render("shortcut.outro", data))
	return strings.Join(sections, "\n")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

func sideLabel(s domain.Side) string {
	switch s {
	case domain.SideWhite, domain.SideBlack:
		return string(s)
	default:
		return notAvailable
	}
}
