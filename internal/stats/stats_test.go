package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter_IncDec(t *testing.T) {
	var c Counter
	wg := sync.WaitGroup{}

	cnt := 100
	wg.Add(cnt * 2)
	for i := 0; i < cnt; i++ {
		go func() {
			c.Inc()
			wg.Done()
		}()
		go func() {
			c.Add(2)
			wg.Done()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(3*cnt), c.Value())

	c.Dec()
	assert.Equal(t, int64(3*cnt-1), c.Value())
}

func TestCounters_Snapshot(t *testing.T) {
	c := &Counters{}
	c.Accepted.Inc()
	c.Live.Inc()
	c.WritesSubmitted.Add(3)
	c.WritesCompleted.Add(2)
	c.BytesIn.Add(10)

	s := c.Snapshot()
	assert.Equal(t, int64(1), s.Accepted)
	assert.Equal(t, int64(1), s.Live)
	assert.Equal(t, int64(10), s.BytesIn)
	assert.Equal(t, int64(1), s.WritesPending())
}
