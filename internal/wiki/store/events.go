package store

import (
	"sync"

	"github.com/gowiki/gowiki/internal/wiki"
)

// Subscribe registers an observer of committed mutations. Events are delivered
// without blocking the store: when the buffer is full the event is dropped for
// that subscriber. Call cancel to unsubscribe; the channel is then closed.
func (s *Store) Subscribe(buffer int) (<-chan wiki.Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan wiki.Event, buffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			close(ch)
			s.subMu.Unlock()
		})
	}
	return ch, cancel
}

// publishLocked runs under the mutation lock so subscribers see events in commit order.
func (s *Store) publishLocked(ev wiki.Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
