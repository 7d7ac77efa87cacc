// Package status tracks the lifecycle of a single generation stream.
// A stream starts in Thinking, may pass through Applying, and ends in
// exactly one of Done, Error or Cancelled.
package status

import (
	"errors"
	"fmt"
	"sync"
)

// Status is the phase a stream is in.
type Status string

const (
	Thinking  Status = "thinking"
	Applying  Status = "applying"
	Done      Status = "done"
	Error     Status = "error"
	Cancelled Status = "cancelled"
)

var (
	// ErrTerminal is returned when a transition is attempted after the
	// stream has already finished.
	ErrTerminal = errors.New("stream already finished")
	// ErrInvalidTransition is returned for edges not in the transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
)

var labels = map[Status]string{
	Thinking:  "Thinking...",
	Applying:  "Applying edits...",
	Done:      "Done",
	Error:     "Error occurred",
	Cancelled: "Cancelled",
}

// Label returns the human-readable text shown while in s.
func (s Status) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

// Terminal reports whether no further transitions may follow s.
func (s Status) Terminal() bool {
	return s == Done || s == Error || s == Cancelled
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := labels[s]
	return ok
}

// transitions lists the allowed edges. Thinking → Thinking is a no-op
// while content accretes.
var transitions = map[Status][]Status{
	Thinking: {Thinking, Applying, Error, Cancelled},
	Applying: {Applying, Done, Error, Cancelled},
}

func allowed(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Controller holds the current status of the active stream. The zero
// value is idle and reports Done, meaning nothing is in flight.
type Controller struct {
	mu      sync.RWMutex
	current Status
	history []Status
}

// NewController returns an idle controller.
func NewController() *Controller {
	return &Controller{}
}

// Start begins a new stream. It is the only way out of a terminal state.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = Thinking
	c.history = []Status{Thinking}
}

// Apply moves the controller to s. Re-entering Thinking from Thinking
// and Applying from Applying is accepted and not recorded.
func (c *Controller) Apply(s Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.current
	if from == "" {
		from = Done
	}
	if from.Terminal() {
		if s == Thinking {
			c.current = Thinking
			c.history = []Status{Thinking}
			return nil
		}
		return fmt.Errorf("%w: %s -> %s", ErrTerminal, from, s)
	}
	if !allowed(from, s) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, s)
	}
	if from == s {
		return nil
	}
	c.current = s
	c.history = append(c.history, s)
	return nil
}

// Current returns the status of the most recent stream.
func (c *Controller) Current() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == "" {
		return Done
	}
	return c.current
}

// Busy reports whether a stream is in flight. Input should be gated on it.
func (c *Controller) Busy() bool {
	s := c.Current()
	return s == Thinking || s == Applying
}

// History returns the transitions of the current stream in order.
func (c *Controller) History() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Status, len(c.history))
	copy(out, c.history)
	return out
}
