package gateway

import "context"

// Result is the outcome of one Send. It resolves once: after the mutation
// call returns for durable intents, immediately for transient ones.
type Result struct {
	intent    Intent
	done      chan struct{}
	err       error
	committed bool
	dropped   bool
}

func newResult(intent Intent) *Result {
	return &Result{intent: intent, done: make(chan struct{})}
}

func (r *Result) resolve(err error, committed, dropped bool) *Result {
	r.err = err
	r.committed = committed
	r.dropped = dropped
	close(r.done)
	return r
}

// Intent returns the intent this result belongs to.
func (r *Result) Intent() Intent { return r.intent }

// Done is closed when the result resolves.
func (r *Result) Done() <-chan struct{} { return r.done }

// Wait blocks until the result resolves or ctx ends.
func (r *Result) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the delivery error. It is nil until the result resolves.
func (r *Result) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Committed reports whether the local state was updated.
func (r *Result) Committed() bool {
	select {
	case <-r.done:
		return r.committed
	default:
		return false
	}
}

// Dropped reports whether a transient intent was discarded because the
// channel was disconnected.
func (r *Result) Dropped() bool {
	select {
	case <-r.done:
		return r.dropped
	default:
		return false
	}
}
