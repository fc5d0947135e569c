// Package buffer holds the two memory shapes of the echo path: the owned,
// immutable Buffer that travels with a write, and the Scratch region reads
// land in.
package buffer

import (
	"math/bits"
	"sync"
)

const (
	minClassShift = 6  // 64B
	maxClassShift = 16 // 64KB
)

var classes [maxClassShift - minClassShift + 1]sync.Pool

// Buffer is an owned, length-tagged copy of bytes read off the wire.
// It must not be modified after From returns it.
type Buffer struct {
	data     []byte
	pooled   *[]byte
	released bool
}

// From copies p into a new Buffer.
func From(p []byte) *Buffer {
	b := &Buffer{}
	if class, ok := classOf(len(p)); ok {
		if v := classes[class].Get(); v != nil {
			b.pooled = v.(*[]byte)
		} else {
			s := make([]byte, 1<<(class+minClassShift))
			b.pooled = &s
		}
		b.data = (*b.pooled)[:len(p)]
	} else {
		b.data = make([]byte, len(p))
	}
	copy(b.data, p)
	return b
}

// Bytes returns the contents. The slice is invalid after Release.
func (b *Buffer) Bytes() []byte {
	return b.data
}

func (b *Buffer) Len() int {
	return len(b.data)
}

// Cap is the capacity of the backing storage; Len never exceeds it.
func (b *Buffer) Cap() int {
	return cap(b.data)
}

// Released reports whether Release has run.
func (b *Buffer) Released() bool {
	return b.released
}

// Release gives the storage back. Only the first call has an effect.
func (b *Buffer) Release() {
	if b.released {
		return
	}
	b.released = true
	if b.pooled != nil {
		class, _ := classOf(cap(*b.pooled))
		classes[class].Put(b.pooled)
		b.pooled = nil
	}
	b.data = nil
}

func classOf(n int) (int, bool) {
	if n > 1<<maxClassShift {
		return 0, false
	}
	shift := minClassShift
	if n > 1<<minClassShift {
		shift = bits.Len(uint(n - 1))
	}
	return shift - minClassShift, true
}
