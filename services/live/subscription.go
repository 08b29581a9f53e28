package live

import "sync"

// Subscription is one watcher's handle on a shared feed.
type Subscription[T any] struct {
	feed *feed[T]
	out  chan Update[T]

	mu     sync.Mutex
	queue  []Update[T]
	notify chan struct{}

	done      chan struct{}
	exited    chan struct{}
	closeOnce sync.Once
}

func newSubscription[T any](f *feed[T]) *Subscription[T] {
	return &Subscription[T]{
		feed:   f,
		out:    make(chan Update[T]),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

// Updates is closed once the Subscription is closed.
func (s *Subscription[T]) Updates() <-chan Update[T] {
	return s.out
}

// Close detaches the watcher. Once Close returns nothing more is delivered on
// Updates. It is safe to call more than once and from the receiving goroutine.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.feed.hub.detach(s.feed, s)
	})
	<-s.exited
}

// offer queues u, keeping at most one pending value and collapsing consecutive
// errors. Called with the feed lock held.
func (s *Subscription[T]) offer(u Update[T]) {
	s.mu.Lock()
	if u.Err == nil {
		kept := s.queue[:0]
		for _, q := range s.queue {
			if q.Err != nil {
				kept = append(kept, q)
			}
		}
		s.queue = append(kept, u)
	} else if n := len(s.queue); n > 0 && s.queue[n-1].Err != nil {
		s.queue[n-1] = u
	} else {
		s.queue = append(s.queue, u)
	}
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) pop() (Update[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		var zero Update[T]
		return zero, false
	}
	u := s.queue[0]
	s.queue = s.queue[1:]
	return u, true
}

func (s *Subscription[T]) pump() {
	defer close(s.exited)
	defer close(s.out)

	for {
		u, ok := s.pop()
		if !ok {
			select {
			case <-s.notify:
				continue
			case <-s.done:
				return
			}
		}
		select {
		case s.out <- u:
		case <-s.done:
			return
		}
	}
}
