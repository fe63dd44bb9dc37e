package state

import (
	"sync"

	"github.com/kirillkom/docqa-client/internal/core/domain"
)

// DocumentState holds at most one current document for a session.
// Set replaces the slot wholesale; observers see every change after the lock is released,
// in the order the writes happened. Subscribers may call Get but must not call Set or Clear.
type DocumentState struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	current *domain.DocumentDescriptor

	subsMu  sync.Mutex
	nextSub int
	subs    map[int]func(*domain.DocumentDescriptor)
}

func NewDocumentState() *DocumentState {
	return &DocumentState{
		subs: make(map[int]func(*domain.DocumentDescriptor)),
	}
}

func (s *DocumentState) Get() (domain.DocumentDescriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.DocumentDescriptor{}, false
	}
	return *s.current, true
}

func (s *DocumentState) Set(doc domain.DocumentDescriptor) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.current = &doc
	s.mu.Unlock()

	s.notify(&doc)
}

func (s *DocumentState) Clear() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	s.notify(nil)
}

// Subscribe registers fn for every Set and Clear. fn receives a copy, or nil on clear.
func (s *DocumentState) Subscribe(fn func(doc *domain.DocumentDescriptor)) func() {
	if fn == nil {
		return func() {}
	}

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *DocumentState) notify(doc *domain.DocumentDescriptor) {
	s.subsMu.Lock()
	fns := make([]func(*domain.DocumentDescriptor), 0, len(s.subs))
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		if doc == nil {
			fn(nil)
			continue
		}
		copyDoc := *doc
		fn(&copyDoc)
	}
}
