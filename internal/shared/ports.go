package shared

import "sync"

// DefaultPortBuffer is the channel capacity used when a subscriber asks for zero.
const DefaultPortBuffer = 16

// State is a single-producer, multi-consumer port with latest-value replay.
//
// New subscribers immediately receive the most recent value. A slow subscriber never blocks the
// producer: when its buffer is full the oldest pending value is dropped in favour of the new one.
type State[T any] struct {
	mu     sync.Mutex
	value  T
	set    bool
	subs   map[int]chan T
	nextID int
	closed bool
}

// NewState returns a State with no value.
func NewState[T any]() *State[T] {
	return &State[T]{subs: make(map[int]chan T)}
}

// Publish stores v and delivers it to every subscriber.
func (s *State[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.value = v
	s.set = true
	for _, ch := range s.subs {
		replace(ch, v)
	}
}

// Value returns the latest value and whether one was ever published.
func (s *State[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.set
}

// Subscribe returns a channel that first yields the latest value (if any) and then every
// subsequent one, plus a function that cancels the subscription.
func (s *State[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = DefaultPortBuffer
	}
	ch := make(chan T, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		close(ch)
		return ch, func() {}
	}
	if s.set {
		ch <- s.value
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	return ch, func() { s.unsubscribe(id) }
}

// Close closes every subscriber channel. Later publishes are ignored.
func (s *State[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *State[T]) unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

// replace sends v, evicting the oldest buffered value when the channel is full.
// Only the producer sends, under its lock, so one eviction always makes room.
func replace[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// Events is a single-producer, multi-consumer port for one-shot notifications.
//
// Values are delivered at most once and never replayed to late subscribers. Sends never block;
// a subscriber whose buffer is full misses the event.
type Events[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	nextID int
	closed bool
}

// NewEvents returns an Events port with no subscribers.
func NewEvents[T any]() *Events[T] {
	return &Events[T]{subs: make(map[int]chan T)}
}

// Publish delivers v to the current subscribers.
func (e *Events[T]) Publish(v T) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	for _, ch := range e.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Subscribe returns a channel receiving events published from now on, plus a cancel function.
func (e *Events[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = DefaultPortBuffer
	}
	ch := make(chan T, buffer)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		close(ch)
		return ch, func() {}
	}

	id := e.nextID
	e.nextID++
	e.subs[id] = ch
	return ch, func() { e.unsubscribe(id) }
}

// Close closes every subscriber channel. Later publishes are ignored.
func (e *Events[T]) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
}

func (e *Events[T]) unsubscribe(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ch, ok := e.subs[id]; ok {
		close(ch)
		delete(e.subs, id)
	}
}
