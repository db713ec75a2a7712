package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/InvictusNavarchus/lichess-ai-assistant/pkg/coachdto"
)

// printer writes each finished assistant turn once, rendering markdown for
// the terminal.
type printer struct {
	out io.Writer
	md  *glamour.TermRenderer

	mu   sync.Mutex
	seen map[string]struct{}
}

func newPrinter(out io.Writer, plain bool) (*printer, error) {
	p := &printer{out: out, seen: make(map[string]struct{})}
	if plain {
		return p, nil
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return nil, fmt.Errorf("terminal renderer: %w", err)
	}
	p.md = r
	return p, nil
}

func (p *printer) OnTranscript(views []coachdto.TurnView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(views) == 0 {
		p.seen = make(map[string]struct{})
		return
	}
	for _, v := range views {
		if v.Kind != coachdto.KindAssistant && v.Kind != coachdto.KindError {
			continue
		}
		if _, ok := p.seen[v.ID]; ok {
			continue
		}
		p.seen[v.ID] = struct{}{}
		p.write(v)
	}
}

func (p *printer) write(v coachdto.TurnView) {
	text := v.Text
	if v.Kind == coachdto.KindAssistant && p.md != nil {
		if rendered, err := p.md.Render(text); err == nil {
			text = rendered
		}
	}
	fmt.Fprintf(p.out, "%s:\n%s\n", v.Author, strings.TrimRight(text, "\n"))
}
