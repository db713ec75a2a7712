package lichess

import (
	"bytes"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/InvictusNavarchus/lichess-ai-assistant/pkg/coachdto"
)

// Welcome is the block shown for an empty transcript.
type Welcome struct {
	Title string
	Body  string
}

// Renderer turns transcript views into the panel's message markup. Output
// depends only on its input.
type Renderer struct {
	md      goldmark.Markdown
	welcome Welcome
}

func NewRenderer(welcome Welcome) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
	)
	return &Renderer{md: md, welcome: welcome}
}

func (r *Renderer) RenderTranscript(views []coachdto.TurnView) string {
	if len(views) == 0 {
		return `<div class="ai-chat-welcome"><strong>` + html.EscapeString(r.welcome.Title) +
			`</strong><span>` + html.EscapeString(r.welcome.Body) + `</span></div>`
	}
	var b strings.Builder
	for _, v := range views {
		switch v.Kind {
		case coachdto.KindLoading:
			b.WriteString(`<div class="ai-chat-message ai"><div class="ai-loader"><span>`)
			b.WriteString(html.EscapeString(v.Text))
			b.WriteString(`</span></div></div>`)
			continue
		case coachdto.KindUser:
			b.WriteString(`<div class="ai-chat-message user">`)
		case coachdto.KindError:
			b.WriteString(`<div class="ai-chat-message ai error">`)
		default:
			b.WriteString(`<div class="ai-chat-message ai">`)
		}
		b.WriteString(`<div class="ai-message-author">`)
		b.WriteString(html.EscapeString(v.Author))
		b.WriteString(`</div><div class="ai-message-content">`)
		b.WriteString(r.content(v))
		b.WriteString(`</div></div>`)
	}
	return b.String()
}

func (r *Renderer) content(v coachdto.TurnView) string {
	if v.Kind == coachdto.KindAssistant {
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(v.Text), &buf); err == nil {
			return strings.TrimSpace(buf.String())
		}
	}
	return strings.ReplaceAll(html.EscapeString(v.Text), "\n", "<br>")
}
