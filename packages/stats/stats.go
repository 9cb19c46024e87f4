// Package stats aggregates upstream request latencies.
package stats

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Recorder collects latencies into an HDR histogram (microsecond precision,
// 1us to 60s, 3 significant digits). Safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
	byName    map[string]*hdrhistogram.Histogram
}

// Snapshot is a point-in-time view of a histogram.
type Snapshot struct {
	Count int64         `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

func NewRecorder() *Recorder {
	return &Recorder{
		histogram: newHistogram(),
		byName:    make(map[string]*hdrhistogram.Histogram),
	}
}

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(minLatencyUs, maxLatencyUs, 3)
}

// Observe records one latency. Values outside the histogram range are clamped.
func (r *Recorder) Observe(d time.Duration) {
	r.ObserveNamed("", d)
}

// ObserveNamed records a latency in the total and, when name is set, in a
// per-name histogram (e.g. per endpoint).
func (r *Recorder) ObserveNamed(name string, d time.Duration) {
	us := clamp(d.Microseconds())

	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.histogram.RecordValue(us)
	if name == "" {
		return
	}
	h, ok := r.byName[name]
	if !ok {
		h = newHistogram()
		r.byName[name] = h
	}
	_ = h.RecordValue(us)
}

// Snapshot summarizes every observation so far.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return snapshotOf(r.histogram)
}

// Named summarizes the per-name histograms.
func (r *Recorder) Named() map[string]Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Snapshot, len(r.byName))
	for name, h := range r.byName {
		out[name] = snapshotOf(h)
	}
	return out
}

// Reset drops all observations.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histogram.Reset()
	r.byName = make(map[string]*hdrhistogram.Histogram)
}

func snapshotOf(h *hdrhistogram.Histogram) Snapshot {
	if h.TotalCount() == 0 {
		return Snapshot{}
	}
	return Snapshot{
		Count: h.TotalCount(),
		Min:   us(h.Min()),
		Max:   us(h.Max()),
		Mean:  us(int64(h.Mean())),
		P50:   us(h.ValueAtQuantile(50)),
		P95:   us(h.ValueAtQuantile(95)),
		P99:   us(h.ValueAtQuantile(99)),
	}
}

func us(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}

func clamp(v int64) int64 {
	if v < minLatencyUs {
		return minLatencyUs
	}
	if v > maxLatencyUs {
		return maxLatencyUs
	}
	return v
}
