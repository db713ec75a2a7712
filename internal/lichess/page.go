// Package lichess drives a lichess analysis board through the Chrome DevTools
// protocol: it reads the board state, relays content changes and hosts the
// coach panel inside the page.
package lichess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

const DefaultAnalysisURL = "https://lichess.org/analysis"

// closeTimeout bounds teardown, which runs after the open context is gone.
const closeTimeout = 5 * time.Second

// Evaluator runs a JS function expression in the page and decodes its JSON
// result into out. A nil out discards the result.
type Evaluator interface {
	Eval(ctx context.Context, js string, out any, args ...any) error
}

type PageConfig struct {
	// ControlURL is a DevTools websocket URL. Empty launches a local browser.
	ControlURL string
	URL        string
	Headless   bool
}

type Page struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	logger   *zap.Logger
}

// Open connects to (or launches) a browser and loads the analysis board.
func Open(ctx context.Context, cfg PageConfig, logger *zap.Logger) (*Page, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	target := strings.TrimSpace(cfg.URL)
	if target == "" {
		target = DefaultAnalysisURL
	}

	p := &Page{logger: logger}
	controlURL := strings.TrimSpace(cfg.ControlURL)
	if controlURL == "" {
		l := launcher.New().Headless(cfg.Headless)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		p.launcher = l
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		p.killLauncher()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	p.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: target})
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("open %s: %w", target, err)
	}
	p.page = page
	if err := page.WaitLoad(); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("wait load: %w", err)
	}
	logger.Info("page_opened", zap.String("url", target), zap.Bool("launched", p.launcher != nil))
	return p, nil
}

func (p *Page) Eval(ctx context.Context, js string, out any, args ...any) error {
	if p == nil || p.page == nil {
		return errors.New("page not open")
	}
	res, err := p.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	if out == nil || res == nil {
		return nil
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// Close closes the board tab, or the whole browser when it was launched here.
// It does not depend on the context Open was given.
func (p *Page) Close() error {
	if p == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	var err error
	if p.page != nil && p.launcher == nil {
		err = p.page.Context(ctx).Close()
	}
	if p.browser != nil && p.launcher != nil {
		err = p.browser.Context(ctx).Close()
	}
	p.page = nil
	p.killLauncher()
	return err
}

func (p *Page) killLauncher() {
	if p.launcher != nil {
		p.launcher.Kill()
		p.launcher = nil
	}
}
