package workflow

import "sync"

// Selection is an ordered set of applicant ids chosen for a bulk action.
type Selection struct {
	mu  sync.Mutex
	ids []int64
}

func NewSelection(ids ...int64) *Selection {
	s := &Selection{}
	s.Add(ids...)
	return s
}

// Toggle adds id when absent and removes it otherwise. It reports whether id
// is selected afterwards.
func (s *Selection) Toggle(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		s.ids = append(s.ids[:i], s.ids[i+1:]...)
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

func (s *Selection) Add(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if s.index(id) < 0 {
			s.ids = append(s.ids, id)
		}
	}
}

func (s *Selection) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		s.ids = append(s.ids[:i], s.ids[i+1:]...)
	}
}

// SelectAll replaces the selection with ids, or clears it when every id is
// already selected.
func (s *Selection) SelectAll(ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := len(ids) > 0 && len(ids) == len(s.ids)
	for _, id := range ids {
		if s.index(id) < 0 {
			all = false
			break
		}
	}
	s.ids = nil
	if all {
		return
	}
	for _, id := range ids {
		if s.index(id) < 0 {
			s.ids = append(s.ids, id)
		}
	}
}

func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
}

// Retain drops every selected id not in keep.
func (s *Selection) Retain(keep []int64) {
	set := make(map[int64]struct{}, len(keep))
	for _, id := range keep {
		set[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.ids[:0]
	for _, id := range s.ids {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	s.ids = out
}

// IDs returns a copy in selection order.
func (s *Selection) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func (s *Selection) Contains(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index(id) >= 0
}

func (s *Selection) index(id int64) int {
	for i, v := range s.ids {
		if v == id {
			return i
		}
	}
	return -1
}
