// Package request holds the request-state helpers shared by every view: a
// loader tracking data, error and loading for one call, and a registry that
// keeps a form control disabled while its submission is in flight.
package request

import (
	"context"
	"sync"
)

// State is the observable state of one loader.
type State[T any] struct {
	Data    T
	Err     error
	Loading bool
}

// Loader runs a call and keeps its latest result. The zero value is ready
// to use. A Loader must not be copied after first use.
type Loader[T any] struct {
	mu    sync.Mutex
	state State[T]
}

// Execute runs fn and records its result. Loading is set for the duration of
// the call and cleared on every path, panics included.
//
// If ctx is done by the time fn returns (the page was abandoned or the
// client disconnected), the result is discarded: the stored state keeps its
// previous Data and Err, and the returned state carries ctx.Err().
func (l *Loader[T]) Execute(ctx context.Context, fn func(context.Context) (T, error)) State[T] {
	l.mu.Lock()
	l.state.Loading = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.state.Loading = false
		l.mu.Unlock()
	}()

	data, err := fn(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		discarded := l.state
		discarded.Err = ctxErr
		discarded.Loading = false
		return discarded
	}

	l.state.Data = data
	l.state.Err = err
	return State[T]{Data: data, Err: err}
}

// Run executes fn once through a fresh loader.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error)) State[T] {
	var l Loader[T]
	return l.Execute(ctx, fn)
}
