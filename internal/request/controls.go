package request

import (
	"errors"
	"sync"
)

// ErrBusy is returned when a control already has a submission in flight.
var ErrBusy = errors.New("request: control busy")

// Controls tracks which form controls have a mutating call in flight.
// Keys are opaque; the portal uses "<browser id>/<control>". The guarantee is
// per key only: two different controls touching the same record are not
// serialised.
type Controls struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewControls creates an empty registry.
func NewControls() *Controls {
	return &Controls{inFlight: make(map[string]struct{})}
}

// Acquire marks key busy. The returned release func must be called when the
// call completes; calling it more than once is harmless.
func (c *Controls) Acquire(key string) (release func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inFlight[key]; busy {
		return nil, ErrBusy
	}
	c.inFlight[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.inFlight, key)
			c.mu.Unlock()
		})
	}, nil
}

// Busy reports whether key has a call in flight.
func (c *Controls) Busy(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inFlight[key]
	return busy
}

// Len returns the number of busy controls.
func (c *Controls) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inFlight)
}
