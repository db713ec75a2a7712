package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Reply is what the assistant endpoint answered. OK reports a successful
// exchange at the transport level; Content may still be empty. A failed
// exchange carries either the HTTP Status or, for an undecodable body, the
// decoding Reason.
type Reply struct {
	OK      bool
	Content string
	Status  int
	Reason  string
}

// Assistant sends one composed prompt and returns the reply. A returned error
// is a transport failure.
type Assistant interface {
	Call(ctx context.Context, prompt string) (Reply, error)
}

// AssistantFunc adapts a function to Assistant.
type AssistantFunc func(ctx context.Context, prompt string) (Reply, error)

func (f AssistantFunc) Call(ctx context.Context, prompt string) (Reply, error) {
	return f(ctx, prompt)
}

type failureKind int

const (
	failureParse failureKind = iota
	failureStatus
	failureFormat
	failureNetwork
)

type outcome struct {
	content string
	reason  string
	status  int
	kind    failureKind
	ok      bool
}

func classify(reply Reply, err error) outcome {
	switch {
	case err != nil:
		return outcome{kind: failureNetwork, reason: err.Error()}
	case !reply.OK && reply.Status != 0:
		return outcome{kind: failureStatus, status: reply.Status, reason: fmt.Sprintf("status %d", reply.Status)}
	case !reply.OK:
		reason := strings.TrimSpace(reply.Reason)
		if reason == "" {
			return outcome{kind: failureFormat}
		}
		return outcome{kind: failureParse, reason: reason}
	case strings.TrimSpace(reply.Content) == "":
		return outcome{kind: failureFormat}
	default:
		return outcome{ok: true, content: reply.Content}
	}
}

type dispatcher struct {
	assistant Assistant
	timeout   time.Duration
	logger    *zap.Logger
}

// run performs exactly one call and hands the classified outcome to resolve.
func (d *dispatcher) run(ctx context.Context, requestID, prompt string, resolve func(outcome)) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	started := time.Now()
	reply, err := d.assistant.Call(ctx, prompt)
	out := classify(reply, err)
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.Int("prompt_len", len(prompt)),
		zap.Duration("elapsed", time.Since(started)),
	}
	if out.ok {
		d.logger.Debug("assistant_reply", append(fields, zap.Int("content_len", len(out.content)))...)
	} else {
		d.logger.Warn("assistant_failed", append(fields, zap.String("reason", out.reason), zap.Error(err))...)
	}
	resolve(out)
}
