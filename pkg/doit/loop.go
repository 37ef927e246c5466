package doit

import "context"

// Buffer size of the post channel. The value is chosen for no particular
// reason.
const postChSize = 128

// Loop runs callbacks one at a time on the goroutine that calls Run. It is
// the event loop for sequences whose join callbacks are called from other
// goroutines: delivering every callback through the same Loop keeps all the
// steps of a sequence on one goroutine.
type Loop struct {
	postCh   chan func()
	returnCh chan struct{}
}

// NewLoop creates a new Loop.
func NewLoop() *Loop {
	return &Loop{
		postCh:   make(chan func(), postChSize),
		returnCh: make(chan struct{}, 1),
	}
}

// Post queues f to run on the loop. It may block if the internal buffer is
// full.
func (lp *Loop) Post(f func()) {
	lp.postCh <- f
}

// Deliver wraps cb so that calling the result from any goroutine runs cb on
// the loop. It is meant for join callbacks:
//
//	jn := lp.Deliver(s.Join())
//	go func() { jn(fetch()) }()
func (lp *Loop) Deliver(cb func(args ...any)) func(args ...any) {
	return func(args ...any) {
		lp.Post(func() { cb(args...) })
	}
}

// Stop requests Run to return. It never blocks. Callbacks posted but not yet
// run are dropped.
func (lp *Loop) Stop() {
	select {
	case lp.returnCh <- struct{}{}:
	default:
	}
}

// Run runs posted callbacks until Stop is called or ctx is done. It returns
// nil after Stop and ctx.Err() otherwise. It never calls two callbacks in
// parallel, so the callbacks may manipulate shared states without
// synchronization.
func (lp *Loop) Run(ctx context.Context) error {
	for {
		select {
		case f := <-lp.postCh:
			// Run all callbacks in the channel before checking ctx.
		runAllCallbacks:
			for {
				f()
				select {
				case <-lp.returnCh:
					return nil
				default:
				}
				select {
				case f = <-lp.postCh:
				default:
					break runAllCallbacks
				}
			}
		case <-lp.returnCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
