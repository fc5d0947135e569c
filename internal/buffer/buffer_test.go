package buffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCopies(t *testing.T) {
	src := []byte("hello")
	b := From(src)
	src[0] = 'j'

	assert.Equal(t, []byte("hello"), b.Bytes())
	assert.Equal(t, 5, b.Len())
	assert.LessOrEqual(t, b.Len(), b.Cap())
}

func TestFromSizes(t *testing.T) {
	for _, n := range []int{0, 1, 63, 64, 65, 4096, 65000, 1 << 16, 1<<16 + 1, 200000} {
		p := bytes.Repeat([]byte{'x'}, n)
		b := From(p)
		require.Equal(t, n, b.Len(), "size %d", n)
		require.Equal(t, p, b.Bytes(), "size %d", n)
		b.Release()
	}
}

func TestReleaseOnce(t *testing.T) {
	b := From([]byte("world"))
	b.Release()
	assert.True(t, b.Released())
	assert.Nil(t, b.Bytes())

	assert.NotPanics(t, b.Release)
	assert.Equal(t, 0, b.Len())
}

func TestReleasedStorageIsReused(t *testing.T) {
	a := From(bytes.Repeat([]byte{'a'}, 100))
	a.Release()

	b := From([]byte("b"))
	assert.Equal(t, []byte("b"), b.Bytes())
}

func TestClassOf(t *testing.T) {
	cases := []struct {
		n     int
		class int
		ok    bool
	}{
		{0, 0, true},
		{64, 0, true},
		{65, 1, true},
		{128, 1, true},
		{65000, 10, true},
		{1 << 16, 10, true},
		{1<<16 + 1, 0, false},
	}
	for _, c := range cases {
		class, ok := classOf(c.n)
		assert.Equal(t, c.ok, ok, "n=%d", c.n)
		if ok {
			assert.Equal(t, c.class, class, "n=%d", c.n)
		}
	}
}

func TestScratch(t *testing.T) {
	s := NewScratch(16)
	assert.Equal(t, 16, s.Cap())

	p := s.Checkout()
	assert.Len(t, p, 16)
	assert.Panics(t, func() { s.Checkout() })

	s.Return()
	assert.NotPanics(t, func() { s.Checkout() })

	assert.Equal(t, DefaultScratchSize, NewScratch(0).Cap())
}
