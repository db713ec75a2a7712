package history

import "sync"

// Capacity is the number of distinct positions retained.
const Capacity = 3

// Stack keeps the most recent distinct position ids, oldest first.
type Stack struct {
	mu  sync.Mutex
	ids []string
}

func NewStack() *Stack {
	return &Stack{ids: make([]string, 0, Capacity+1)}
}

// Push records id as the newest entry. Pushing the current newest id is a no-op;
// an id present elsewhere is moved to the newest slot rather than duplicated.
func (s *Stack) Push(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.ids); n > 0 && s.ids[n-1] == id {
		return
	}
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	s.ids = append(s.ids, id)
	if len(s.ids) > Capacity {
		s.ids = append(s.ids[:0], s.ids[len(s.ids)-Capacity:]...)
	}
}

// Newest returns the most recent id, or false when empty.
func (s *Stack) Newest() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ids) == 0 {
		return "", false
	}
	return s.ids[len(s.ids)-1], true
}

// SecondNewest returns the position a prior evaluation was computed against.
func (s *Stack) SecondNewest() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ids) < 2 {
		return "", false
	}
	return s.ids[len(s.ids)-2], true
}

// All returns a copy ordered oldest to newest.
func (s *Stack) All() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func (s *Stack) Clear() {
	s.mu.Lock()
	s.ids = s.ids[:0]
	s.mu.Unlock()
}
