package lichess

import (
	"context"
	"errors"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/guard"
	"github.com/InvictusNavarchus/lichess-ai-assistant/pkg/coachdto"
)

var ErrNoAnchor = errors.New("lichess: analysis sidebar not found")

type panelState struct {
	Present    bool `json:"present"`
	Suppressed bool `json:"suppressed"`
}

// Panel is the coach surface living in the analysis sidebar.
type Panel struct {
	ev       Evaluator
	title    string
	renderer *Renderer
}

func NewPanel(ev Evaluator, title string, renderer *Renderer) *Panel {
	return &Panel{ev: ev, title: title, renderer: renderer}
}

// Attach constructs the panel on first use and places it under the anchor.
func (p *Panel) Attach(ctx context.Context) error {
	var ok bool
	if err := p.ev.Eval(ctx, attachPanelJS, &ok, p.title); err != nil {
		return err
	}
	if !ok {
		return ErrNoAnchor
	}
	return nil
}

func (p *Panel) Expand(ctx context.Context) error {
	return p.ev.Eval(ctx, expandJS, nil)
}

// Render replaces the message list with the transcript. The send button is
// disabled while a reply is pending.
func (p *Panel) Render(ctx context.Context, views []coachdto.TurnView) error {
	busy := false
	for _, v := range views {
		if v.Kind == coachdto.KindLoading {
			busy = true
		}
	}
	return p.ev.Eval(ctx, renderJS, nil, p.renderer.RenderTranscript(views), busy)
}

func (p *Panel) state(ctx context.Context) (panelState, error) {
	var st panelState
	err := p.ev.Eval(ctx, panelStateJS, &st)
	return st, err
}

func (p *Panel) Present(ctx context.Context) (bool, error) {
	st, err := p.state(ctx)
	return st.Present, err
}

func (p *Panel) Suppressed(ctx context.Context) (bool, error) {
	st, err := p.state(ctx)
	return st.Suppressed, err
}

func (p *Panel) Unsuppress(ctx context.Context) error {
	return p.ev.Eval(ctx, unsuppressJS, nil)
}

// Reattach re-appends the existing panel node. It never builds a new one.
func (p *Panel) Reattach(ctx context.Context) error {
	var ok bool
	if err := p.ev.Eval(ctx, reattachJS, &ok); err != nil {
		return err
	}
	if !ok {
		return ErrNoAnchor
	}
	return nil
}

var _ guard.Surface = (*Panel)(nil)
