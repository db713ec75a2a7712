package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubPublishAndUnsubscribe(t *testing.T) {
	h := NewHub()
	var a, b int
	unsubA := h.Subscribe(func(Batch) { a++ })
	h.Subscribe(func(Batch) { b++ })

	h.Publish(Batch{{Kind: Structural, Target: "moves"}})
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)

	unsubA()
	unsubA()
	assert.Equal(t, 1, h.Len())

	h.Publish(Batch{{Kind: Attribute, Target: "moves", Attribute: "class"}})
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestHubDropsEmptyBatches(t *testing.T) {
	h := NewHub()
	calls := 0
	h.Subscribe(func(Batch) { calls++ })
	h.Publish(nil)
	h.Publish(Batch{})
	assert.Zero(t, calls)
}

func TestHubIgnoresNilHandler(t *testing.T) {
	h := NewHub()
	unsub := h.Subscribe(nil)
	unsub()
	assert.Zero(t, h.Len())
}
