package drawing

import (
	"errors"
	"sync"
)

var ErrSuperseded = errors.New("render superseded by a newer request")

// Render is a request to draw a snapshot onto the canvas. It completes once
// the snapshot has been decoded and applied, or dropped because a newer
// request took its place.
type Render struct {
	done chan struct{}
	err  error
}

func (r *Render) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the render completes and returns its outcome.
func (r *Render) Wait() error {
	<-r.done
	return r.err
}

// renderSlot holds the single pending render of a canvas.
type renderSlot struct {
	mu     sync.Mutex
	latest *Render
}

func (s *renderSlot) next() *Render {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &Render{done: make(chan struct{})}
	s.latest = r
	return r
}

func (s *renderSlot) isLatest(r *Render) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest == r
}

// wait blocks until the most recent request has completed.
func (s *renderSlot) wait() {
	s.mu.Lock()
	r := s.latest
	s.mu.Unlock()

	if r != nil {
		<-r.done
	}
}
