package mutation

import "sync"

// Kind distinguishes child-list changes from attribute changes.
type Kind string

const (
	Structural Kind = "structural"
	Attribute  Kind = "attribute"
)

// Entry is one observed change in the external content tree.
type Entry struct {
	Kind      Kind   `json:"kind"`
	Target    string `json:"target"`
	Attribute string `json:"attribute,omitempty"`
	Added     int    `json:"added,omitempty"`
	Removed   int    `json:"removed,omitempty"`
}

// Batch is the set of entries delivered in one notification.
type Batch []Entry

// Handler receives batches. Handlers must not block for long.
type Handler func(Batch)

// Feed is a subscription point on one region of the content tree.
type Feed interface {
	Subscribe(h Handler) (unsubscribe func())
}

type handlerEntry struct {
	id int
	h  Handler
}

// Hub fans a batch out to its subscribers. It is the Feed implementation
// shared by the browser and file adapters.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   []handlerEntry
}

func NewHub() *Hub { return &Hub{} }

func (h *Hub) Subscribe(fn Handler) func() {
	if fn == nil {
		return func() {}
	}
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, handlerEntry{id: id, h: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, e := range h.subs {
				if e.id == id {
					h.subs = append(h.subs[:i], h.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers b to every current subscriber. Empty batches are dropped.
func (h *Hub) Publish(b Batch) {
	if len(b) == 0 {
		return
	}
	h.mu.RLock()
	subs := append([]handlerEntry(nil), h.subs...)
	h.mu.RUnlock()
	for _, e := range subs {
		e.h(b)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
