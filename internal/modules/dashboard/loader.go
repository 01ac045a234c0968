package dashboard

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by Loader.Load when a newer load was issued
// before this one completed
var ErrSuperseded = errors.New("load superseded by a newer request")

// Loader runs at most one load at a time for a dataset. Issuing a new load
// cancels the one in flight, and a load that was superseded never returns
// its result: the most recently issued request wins.
type Loader[T any] struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	closed bool
}

// Load runs fn with a context that is cancelled when ctx is, when a newer
// Load starts, or when the loader is closed.
func (l *Loader[T]) Load(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return zero, context.Canceled
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	mine := l.seq
	lctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	v, err := fn(lctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if mine != l.seq {
		cancel()
		return zero, ErrSuperseded
	}
	l.cancel = nil
	cancel()
	if err != nil {
		return zero, err
	}
	return v, nil
}

// Close cancels the load in flight and rejects new ones
func (l *Loader[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
