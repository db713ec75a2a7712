package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/mutation"
)

type fakeSurface struct {
	present    bool
	suppressed bool
	attaches   int
	unsuppress int
	presentErr error
}

func (f *fakeSurface) Present(context.Context) (bool, error) { return f.present, f.presentErr }
func (f *fakeSurface) Suppressed(context.Context) (bool, error) {
	return f.suppressed, nil
}
func (f *fakeSurface) Unsuppress(context.Context) error {
	f.unsuppress++
	f.suppressed = false
	return nil
}
func (f *fakeSurface) Reattach(context.Context) error {
	f.attaches++
	f.present = true
	return nil
}

func TestIdempotentWhenHealthy(t *testing.T) {
	s := &fakeSurface{present: true}
	g := New(s, 0, nil)

	g.OnMutation(mutation.Batch{{Kind: mutation.Structural}})
	g.OnMutation(mutation.Batch{{Kind: mutation.Structural}})

	assert.Zero(t, s.attaches)
	assert.Zero(t, s.unsuppress)
	assert.Equal(t, Stats{Checks: 2}, g.Stats())
}

func TestRemovesSuppressedMarker(t *testing.T) {
	s := &fakeSurface{present: true, suppressed: true}
	g := New(s, 0, nil)

	g.Check(context.Background())
	g.Check(context.Background())

	assert.False(t, s.suppressed)
	assert.Equal(t, 1, s.unsuppress)
	assert.Zero(t, s.attaches)
}

func TestReattachesMissingSurface(t *testing.T) {
	s := &fakeSurface{present: false}
	g := New(s, 0, nil)

	g.Check(context.Background())
	g.Check(context.Background())

	assert.Equal(t, 1, s.attaches)
	assert.True(t, s.present)
	assert.Equal(t, 1, g.Stats().Reattached)
}

func TestReattachAlsoClearsStaleMarker(t *testing.T) {
	s := &fakeSurface{present: false, suppressed: true}
	g := New(s, 0, nil)

	g.Check(context.Background())
	assert.Equal(t, 1, s.attaches)
	assert.False(t, s.suppressed)
}

func TestErrorsAreLoggedNotFatal(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := &fakeSurface{presentErr: errors.New("target closed")}
	g := New(s, 0, zap.New(core))

	g.Check(context.Background())
	assert.Equal(t, 1, g.Stats().Errors)
	assert.Equal(t, 1, logs.FilterMessage("guard_presence_check_failed").Len())
	assert.Zero(t, s.attaches)
}
