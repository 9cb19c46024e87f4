package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecorder_Empty(t *testing.T) {
	r := NewRecorder()
	assert.Equal(t, Snapshot{}, r.Snapshot())
	assert.Empty(t, r.Named())
}

func TestRecorder_Snapshot(t *testing.T) {
	r := NewRecorder()
	for i := 1; i <= 100; i++ {
		r.Observe(time.Duration(i) * time.Millisecond)
	}

	s := r.Snapshot()
	assert.Equal(t, int64(100), s.Count)
	assert.InDelta(t, float64(time.Millisecond), float64(s.Min), float64(10*time.Microsecond))
	assert.InDelta(t, float64(100*time.Millisecond), float64(s.Max), float64(time.Millisecond))
	assert.InDelta(t, float64(50*time.Millisecond), float64(s.P50), float64(time.Millisecond))
	assert.InDelta(t, float64(95*time.Millisecond), float64(s.P95), float64(time.Millisecond))
	assert.InDelta(t, float64(99*time.Millisecond), float64(s.P99), float64(time.Millisecond))
	assert.InDelta(t, float64(50500*time.Microsecond), float64(s.Mean), float64(time.Millisecond))
	assert.LessOrEqual(t, s.P50, s.P95)
	assert.LessOrEqual(t, s.P95, s.P99)
}

func TestRecorder_Clamp(t *testing.T) {
	r := NewRecorder()
	r.Observe(0)
	r.Observe(2 * time.Minute)

	s := r.Snapshot()
	assert.Equal(t, int64(2), s.Count)
	assert.Equal(t, time.Microsecond, s.Min)
	assert.InDelta(t, float64(60*time.Second), float64(s.Max), float64(100*time.Millisecond))
}

func TestRecorder_Named(t *testing.T) {
	r := NewRecorder()
	r.ObserveNamed("topstories", 10*time.Millisecond)
	r.ObserveNamed("item", 20*time.Millisecond)
	r.ObserveNamed("item", 30*time.Millisecond)

	named := r.Named()
	assert.Len(t, named, 2)
	assert.Equal(t, int64(2), named["item"].Count)
	assert.Equal(t, int64(3), r.Snapshot().Count)

	r.Reset()
	assert.Equal(t, int64(0), r.Snapshot().Count)
	assert.Empty(t, r.Named())
}

func TestRecorder_Concurrent(t *testing.T) {
	r := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.ObserveNamed("item", time.Millisecond)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(800), r.Snapshot().Count)
}
