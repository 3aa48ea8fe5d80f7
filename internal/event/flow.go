// Package event provides a small latest-value stream used to fan out
// store and filter updates to interested components.
package event

import "sync"

// Flow broadcasts the most recent value to subscribers. Each subscriber
// holds a single-slot mailbox: when a new value arrives before the old
// one is consumed, the old one is dropped. Slow consumers therefore
// never block publishers and always observe the newest state.
type Flow[T any] struct {
	mu        sync.Mutex
	latest    T
	hasLatest bool
	subs      map[int]chan T
	nextID    int
}

// NewFlow returns an empty flow with no current value.
func NewFlow[T any]() *Flow[T] {
	return &Flow[T]{subs: make(map[int]chan T)}
}

// Publish replaces the current value and offers it to every subscriber,
// displacing any unconsumed previous value.
func (f *Flow[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.latest = v
	f.hasLatest = true
	for _, ch := range f.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// Latest returns the most recently published value, if any.
func (f *Flow[T]) Latest() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, f.hasLatest
}

// Subscribe registers a new subscriber. The returned channel immediately
// carries the current value when one exists. The cancel function removes
// the subscription; the channel is not closed so a racing Publish cannot
// panic.
func (f *Flow[T]) Subscribe() (<-chan T, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	ch := make(chan T, 1)
	if f.hasLatest {
		ch <- f.latest
	}
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
	return ch, cancel
}
