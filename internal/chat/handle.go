package chat

import "context"

// Handle is the cancellation handle for one in-flight turn. It is owned
// by the Session that created it; Cancel may be called from any
// goroutine and more than once.
type Handle struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newHandle(parent context.Context) *Handle {
	ctx, cancel := context.WithCancel(parent)
	return &Handle{ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

// Context is the context the stream observes.
func (h *Handle) Context() context.Context {
	return h.ctx
}

// Cancel signals the stream to stop.
func (h *Handle) Cancel() {
	h.cancel()
}

// Done is closed once the stream has returned and will invoke no more
// callbacks.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) finish() {
	h.cancel()
	close(h.done)
}
