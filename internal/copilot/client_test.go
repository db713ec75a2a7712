package copilot

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func serve(t *testing.T, h fasthttp.RequestHandler) fasthttp.DialFunc {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	return func(string) (net.Conn, error) { return ln.Dial() }
}

func TestCallReturnsContent(t *testing.T) {
	var gotText, gotPath string
	dial := serve(t, func(ctx *fasthttp.RequestCtx) {
		gotPath = string(ctx.Path())
		gotText = string(ctx.QueryArgs().Peek("text"))
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"code":200,"response":{"content":"Develop your knights."}}`)
	})
	c := NewClient("http://coach.test/v1/ai/copilot", WithDialer(dial))

	reply, err := c.Call(context.Background(), "What & why?\nUser: e4")
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.Equal(t, "Develop your knights.", reply.Content)
	assert.Equal(t, "/v1/ai/copilot", gotPath)
	assert.Equal(t, "What & why?\nUser: e4", gotText)
}

func TestCallUnexpectedShape(t *testing.T) {
	dial := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{"code":500,"message":"busy"}`)
	})
	reply, err := NewClient("http://coach.test/x", WithDialer(dial)).Call(context.Background(), "p")
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.Empty(t, reply.Content)
}

func TestCallBadStatus(t *testing.T) {
	dial := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
	})
	reply, err := NewClient("http://coach.test/x", WithDialer(dial)).Call(context.Background(), "p")
	require.NoError(t, err)
	assert.False(t, reply.OK)
	assert.Equal(t, fasthttp.StatusBadGateway, reply.Status)
}

func TestCallUndecodableBody(t *testing.T) {
	dial := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString("<html>")
	})
	reply, err := NewClient("http://coach.test/x", WithDialer(dial)).Call(context.Background(), "p")
	require.NoError(t, err)
	assert.False(t, reply.OK)
	assert.Zero(t, reply.Status)
	assert.Contains(t, reply.Reason, "invalid character")
}

func TestCallProxyAndHeaders(t *testing.T) {
	var gotURI, gotHeader string
	dial := serve(t, func(ctx *fasthttp.RequestCtx) {
		gotURI = string(ctx.RequestURI())
		gotHeader = string(ctx.Request.Header.Peek("X-Client"))
		ctx.SetBodyString(`{"code":200,"response":{"content":"ok"}}`)
	})
	c := NewClient("https://api.example/v1/ai/copilot",
		WithDialer(dial),
		WithProxy("http://proxy.test/"),
		WithHeaderProvider(func() map[string]string { return map[string]string{"X-Client": "coach", "": "skip"} }),
	)
	reply, err := c.Call(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Content)
	assert.Equal(t, "/https://api.example/v1/ai/copilot?text=hi", gotURI)
	assert.Equal(t, "coach", gotHeader)
}

func TestCallProxyKeepsTargetOnRequestLine(t *testing.T) {
	ln := fasthttputil.NewInmemoryListener()
	t.Cleanup(func() { _ = ln.Close() })
	line := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		first, _ := bufio.NewReader(conn).ReadString('\n')
		line <- first
		_, _ = conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 40\r\n\r\n{\"code\":200,\"response\":{\"content\":\"ok\"}}"))
	}()

	c := NewClient("https://api.example/v1/ai/copilot",
		WithDialer(func(string) (net.Conn, error) { return ln.Dial() }),
		WithProxy("http://proxy.test/"),
	)
	reply, err := c.Call(context.Background(), "a b")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Content)
	assert.Equal(t, "GET /https://api.example/v1/ai/copilot?text=a+b HTTP/1.1\r\n", <-line)
}

func TestCallTransportError(t *testing.T) {
	dial := func(string) (net.Conn, error) { return nil, &net.OpError{Op: "dial", Err: net.ErrClosed} }
	_, err := NewClient("http://coach.test/x", WithDialer(dial)).Call(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestCallHonoursCancellation(t *testing.T) {
	release := make(chan struct{})
	dial := serve(t, func(ctx *fasthttp.RequestCtx) {
		<-release
		ctx.SetBodyString(`{"code":200,"response":{"content":"late"}}`)
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient("http://coach.test/x", WithDialer(dial)).Call(ctx, "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
