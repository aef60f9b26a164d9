package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"tallybook.org/internal/ledger"
)

// Event is a committed ledger change as sent to subscribers. Seq increases by one per
// published change so a client can notice it missed some and reload.
type Event struct {
	Seq uint64 `json:"seq"`
	ledger.Change
}

// Stream fans ledger changes out to all active subscribers (SSE clients of the
// loopback API). It is wired into the book as its change listener.
type Stream struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	next    int
	seq     atomic.Uint64
	dropped atomic.Uint64
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive events.
// The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fans the change out to all subscribers. It matches the signature of
// ledger.WithListener.
func (s *Stream) Publish(c ledger.Change) {
	evt := Event{Seq: s.seq.Add(1), Change: c}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Slow subscriber; it will see the gap in Seq.
			s.dropped.Add(1)
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Dropped counts events not delivered to a slow subscriber.
func (s *Stream) Dropped() uint64 { return s.dropped.Load() }
