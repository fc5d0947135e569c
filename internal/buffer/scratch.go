package buffer

import "fmt"

// DefaultScratchSize bounds how many bytes a single read event may deliver.
const DefaultScratchSize = 65000

// Scratch is the one reusable read region shared by every connection of a
// loop. Its contents are valid only between Checkout and Return, so a read
// callback must copy what it needs before it returns.
type Scratch struct {
	buf      []byte
	checkout bool
}

func NewScratch(size int) *Scratch {
	if size <= 0 {
		size = DefaultScratchSize
	}
	return &Scratch{buf: make([]byte, size)}
}

// Checkout hands out the region. It panics if the region is already out,
// which only happens when a callback overlapped another.
func (s *Scratch) Checkout() []byte {
	if s.checkout {
		panic(fmt.Sprintf("buffer: scratch region (%d bytes) checked out twice", len(s.buf)))
	}
	s.checkout = true
	return s.buf
}

// Return takes the region back.
func (s *Scratch) Return() {
	s.checkout = false
}

func (s *Scratch) Cap() int {
	return len(s.buf)
}
