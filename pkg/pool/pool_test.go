package pool

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolGetPut(t *testing.T) {
	p := New(
		func() *bytes.Buffer { return new(bytes.Buffer) },
		func(b *bytes.Buffer) { b.Reset() },
	)

	buf := p.Get()
	buf.WriteString("hello")
	assert.Equal(t, int64(1), p.Stats().InUse)

	p.Put(buf)
	assert.Equal(t, 0, buf.Len())

	stats := p.Stats()
	assert.Equal(t, int64(0), stats.InUse)
	assert.Equal(t, int64(1), stats.Allocated)
	assert.Equal(t, int64(1), stats.Gets)
}

func TestPoolDiscard(t *testing.T) {
	p := New(func() []int { return make([]int, 0, 8) }, nil)

	s := p.Get()
	p.Discard(s)
	assert.Equal(t, int64(0), p.Stats().InUse)
}

func TestPoolConcurrent(t *testing.T) {
	p := New(func() *[]byte {
		b := make([]byte, 0, 64)
		return &b
	}, func(b *[]byte) { *b = (*b)[:0] })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b := p.Get()
				*b = append(*b, byte(j))
				p.Put(b)
			}
		}()
	}
	wg.Wait()

	stats := p.Stats()
	assert.Equal(t, int64(0), stats.InUse)
	assert.Equal(t, int64(800), stats.Gets)
	assert.GreaterOrEqual(t, stats.Allocated, int64(1))
	assert.Equal(t, stats.Gets-stats.Allocated, stats.Hits())
}

func TestStatsHits(t *testing.T) {
	assert.Equal(t, int64(0), Stats{Allocated: 3, Gets: 2}.Hits())
	assert.Equal(t, int64(7), Stats{Allocated: 3, Gets: 10}.Hits())
}
