// Package live fans one upstream result stream out to any number of local
// watchers.
//
// Watchers of the same key share a single upstream, which is opened on the first
// Subscribe and stopped when the last Subscription closes. Every value is a full
// state (a record, a result set), so each watcher's mailbox keeps only the newest
// undelivered value and a slow watcher never holds up the others. A late joiner
// receives the last delivered value immediately.
package live

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Update is one delivery: either a new value or an upstream error. After an error
// the hub reopens the upstream and keeps the Subscription alive.
type Update[T any] struct {
	Value T
	Err   error
}

// Source is an open upstream. Next blocks until the next value; Stop unblocks it.
type Source[T any] interface {
	Next() (T, error)
	Stop()
}

// OpenFunc opens the upstream for a key. ctx lives as long as the shared feed.
type OpenFunc[T any] func(ctx context.Context) (Source[T], error)

// Options tune a Hub.
type Options[T any] struct {
	// Accept filters values after the first: returning false drops next.
	Accept func(prev, next T) bool
	// MinBackoff and MaxBackoff bound the delay before reopening a failed upstream.
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Logger     *zap.Logger
}

// Hub owns the shared feeds for one value type.
type Hub[T any] struct {
	mu    sync.Mutex
	feeds map[string]*feed[T]
	opts  Options[T]
}

func NewHub[T any](opts Options[T]) *Hub[T] {
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Hub[T]{feeds: make(map[string]*feed[T]), opts: opts}
}

// Subscribe attaches a watcher to key, opening the upstream with open if no other
// watcher holds it. The Subscription is closed when ctx is done or Close is called.
func (h *Hub[T]) Subscribe(ctx context.Context, key string, open OpenFunc[T]) (*Subscription[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	f, exists := h.feeds[key]
	if !exists {
		fctx, cancel := context.WithCancel(context.Background())
		f = &feed[T]{hub: h, key: key, ctx: fctx, cancel: cancel, subs: make(map[*Subscription[T]]struct{})}
		h.feeds[key] = f
	}
	sub := newSubscription(f)
	f.attach(sub)
	h.mu.Unlock()

	if !exists {
		go f.run(open)
	}
	go sub.pump()
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Active reports how many upstream feeds are open.
func (h *Hub[T]) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.feeds)
}

// Watchers reports how many subscriptions share key.
func (h *Hub[T]) Watchers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.feeds[key]
	if !ok {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (h *Hub[T]) detach(f *feed[T], sub *Subscription[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()

	f.mu.Lock()
	delete(f.subs, sub)
	last := len(f.subs) == 0
	f.mu.Unlock()

	if last && h.feeds[f.key] == f {
		delete(h.feeds, f.key)
		f.stop()
	}
}

type feed[T any] struct {
	hub    *Hub[T]
	key    string
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	subs    map[*Subscription[T]]struct{}
	last    T
	hasLast bool
	src     Source[T]
}

func (f *feed[T]) attach(sub *Subscription[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[sub] = struct{}{}
	if f.hasLast {
		sub.offer(Update[T]{Value: f.last})
	}
}

func (f *feed[T]) stop() {
	f.cancel()
	f.mu.Lock()
	src := f.src
	f.src = nil
	f.mu.Unlock()
	if src != nil {
		src.Stop()
	}
}

func (f *feed[T]) run(open OpenFunc[T]) {
	logger := f.hub.opts.Logger.With(zap.String("feed", f.key))
	backoff := f.hub.opts.MinBackoff

	for f.ctx.Err() == nil {
		src, err := open(f.ctx)
		if err != nil {
			logger.Warn("live: failed to open upstream", zap.Error(err), zap.Duration("retryIn", backoff))
			f.broadcast(Update[T]{Err: err})
			if !f.sleep(backoff) {
				return
			}
			backoff = f.next(backoff)
			continue
		}

		src = &stopOnce[T]{Source: src}
		f.mu.Lock()
		f.src = src
		f.mu.Unlock()
		if f.ctx.Err() != nil {
			src.Stop()
			return
		}

		for {
			v, err := src.Next()
			if err != nil {
				src.Stop()
				if f.ctx.Err() != nil {
					return
				}
				logger.Warn("live: upstream failed", zap.Error(err), zap.Duration("retryIn", backoff))
				f.broadcast(Update[T]{Err: err})
				break
			}
			backoff = f.hub.opts.MinBackoff
			f.deliver(v)
		}

		if !f.sleep(backoff) {
			return
		}
		backoff = f.next(backoff)
	}
}

func (f *feed[T]) next(d time.Duration) time.Duration {
	d *= 2
	if d > f.hub.opts.MaxBackoff {
		d = f.hub.opts.MaxBackoff
	}
	return d
}

func (f *feed[T]) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-f.ctx.Done():
		return false
	}
}

func (f *feed[T]) deliver(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hasLast && f.hub.opts.Accept != nil && !f.hub.opts.Accept(f.last, v) {
		return
	}
	f.last = v
	f.hasLast = true
	for sub := range f.subs {
		sub.offer(Update[T]{Value: v})
	}
}

func (f *feed[T]) broadcast(u Update[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		sub.offer(u)
	}
}

// stopOnce lets both the feed's runner and its canceller stop a Source.
type stopOnce[T any] struct {
	Source[T]
	once sync.Once
}

func (s *stopOnce[T]) Stop() {
	s.once.Do(s.Source.Stop)
}
