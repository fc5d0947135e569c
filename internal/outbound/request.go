// Package outbound defines the write request that carries echoed bytes from
// the moment they are read until the transport is done with them.
package outbound

import "github.com/emove/echoloop/internal/buffer"

// State of a Request.
type State int32

const (
	Pending State = iota
	Complete
)

func (s State) String() string {
	if s == Complete {
		return "complete"
	}
	return "pending"
}

// OnComplete runs once per Request, after its payload has been released.
type OnComplete func(req *Request, err error)

// Request owns its payload until it completes. It is not reused.
type Request struct {
	payload    *buffer.Buffer
	written    int
	size       int
	state      State
	onComplete OnComplete
}

// NewRequest takes ownership of payload.
func NewRequest(payload *buffer.Buffer, onComplete OnComplete) *Request {
	return &Request{
		payload:    payload,
		size:       payload.Len(),
		onComplete: onComplete,
	}
}

// Remaining returns the bytes not yet accepted by the transport.
func (r *Request) Remaining() []byte {
	if r.state == Complete {
		return nil
	}
	return r.payload.Bytes()[r.written:]
}

// Advance records n more bytes as written and reports whether none remain.
func (r *Request) Advance(n int) bool {
	r.written += n
	if r.written > r.size {
		r.written = r.size
	}
	return r.written == r.size
}

// Size is the payload length, still valid after completion.
func (r *Request) Size() int {
	return r.size
}

// Written is how many bytes the transport accepted.
func (r *Request) Written() int {
	return r.written
}

func (r *Request) State() State {
	return r.state
}

// Complete moves the request to Complete, releases its payload and runs the
// callback. Only the first call does anything; it reports whether it was it.
func (r *Request) Complete(err error) bool {
	if r.state == Complete {
		return false
	}
	r.state = Complete
	r.payload.Release()
	r.payload = nil
	if r.onComplete != nil {
		r.onComplete(r, err)
	}
	return true
}
