// Package copilot talks to the hosted assistant endpoint that answers a prompt
// passed as the text query parameter.
package copilot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/session"
)

const DefaultBaseURL = "https://api.zpi.my.id/v1/ai/copilot"

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

type Client struct {
	baseURL string
	proxy   string
	http    *fasthttp.Client
	headers HeaderProvider
	logger  *zap.Logger

	defaultTimeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
			c.http.ReadTimeout = d
		}
	}
}

// WithProxy prefixes every request URL, e.g. "https://cors.example/". The
// target URL then travels in the path, so path normalizing is switched off to
// keep its "//" intact.
func WithProxy(prefix string) Option {
	return func(c *Client) {
		c.proxy = strings.TrimSpace(prefix)
		c.http.DisablePathNormalizing = c.proxy != ""
	}
}

func WithDialer(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:        strings.TrimRight(strings.TrimSpace(baseURL), "?"),
		http:           &fasthttp.Client{ReadTimeout: 60 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 4},
		logger:         zap.NewNop(),
		defaultTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Code     int `json:"code"`
	Response *struct {
		Content string `json:"content"`
	} `json:"response"`
}

// Call sends prompt once. Transport failures are returned as errors; HTTP and
// payload problems are reported in the Reply. Cancelling ctx abandons the
// request without waiting for it.
func (c *Client) Call(ctx context.Context, prompt string) (session.Reply, error) {
	if err := ctx.Err(); err != nil {
		return session.Reply{}, err
	}
	done := make(chan callResult, 1)
	go func() { done <- c.do(ctx, prompt) }()
	select {
	case r := <-done:
		return r.reply, r.err
	case <-ctx.Done():
		return session.Reply{}, ctx.Err()
	}
}

type callResult struct {
	reply session.Reply
	err   error
}

func (c *Client) do(ctx context.Context, prompt string) callResult {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.requestURL(prompt))
	req.Header.Set("Accept", "application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return callResult{err: fmt.Errorf("request failed: %w", err)}
	}

	status := resp.StatusCode()
	body := resp.Body()
	if status < 200 || status >= 300 {
		c.logger.Warn("copilot_status", zap.Int("status", status), zap.String("body", truncate(string(body), 256)))
		return callResult{reply: session.Reply{Status: status}}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return callResult{reply: session.Reply{Reason: err.Error()}}
	}
	if env.Code != 200 || env.Response == nil {
		return callResult{reply: session.Reply{OK: true}}
	}
	return callResult{reply: session.Reply{OK: true, Content: env.Response.Content}}
}

func (c *Client) requestURL(prompt string) string {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("text", prompt)
	return c.proxy + c.baseURL + "?" + string(args.QueryString())
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ session.Assistant = (*Client)(nil)
