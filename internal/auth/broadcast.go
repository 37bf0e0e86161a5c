package auth

import "sync"

// Broadcaster delivers session changes (a *Session on sign-in, nil on
// sign-out) to all subscribers. Subscribers must cancel on teardown so a
// departed listener never receives further notifications.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan *Session
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan *Session)}
}

// Subscribe registers a listener. The returned cancel function is
// idempotent and closes the channel; callers must invoke it when done.
func (b *Broadcaster) Subscribe() (<-chan *Session, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan *Session, 8)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish sends the change to every live subscriber. Slow subscribers
// with full buffers are skipped rather than blocking the publisher.
func (b *Broadcaster) Publish(s *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Len reports the number of live subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
