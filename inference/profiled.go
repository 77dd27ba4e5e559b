package inference

import (
	"context"
	"sync"
	"time"

	"gorgonia.org/tensor"
)

// Metrics summarizes the Forward calls made through a ProfiledEngine.
type Metrics struct {
	InferenceCount int64         `json:"inference_count"`
	FailureCount   int64         `json:"failure_count"`
	TotalTime      time.Duration `json:"total_time"`
	MinTime        time.Duration `json:"min_time"`
	MaxTime        time.Duration `json:"max_time"`
}

// AverageTime returns the mean Forward latency, or 0 before the first call.
func (m Metrics) AverageTime() time.Duration {
	if m.InferenceCount == 0 {
		return 0
	}
	return m.TotalTime / time.Duration(m.InferenceCount)
}

// ThroughputFPS returns the number of Forward calls per second of inference
// time.
func (m Metrics) ThroughputFPS() float64 {
	avg := m.AverageTime()
	if avg <= 0 {
		return 0
	}
	return float64(time.Second) / float64(avg)
}

// ProfiledEngine wraps an Engine with latency tracking.
type ProfiledEngine struct {
	Engine

	mu      sync.RWMutex
	metrics Metrics
	now     func() time.Time
}

// NewProfiledEngine wraps engine.
//
// Arguments:
//   - engine: The engine to measure.
//
// Returns:
//   - *ProfiledEngine: The wrapper; closing it closes engine.
func NewProfiledEngine(engine Engine) *ProfiledEngine {
	return &ProfiledEngine{Engine: engine, now: time.Now}
}

// Forward runs the wrapped engine and records the call duration.
func (p *ProfiledEngine) Forward(ctx context.Context, blob *tensor.Dense) ([]*tensor.Dense, error) {
	start := p.now()
	outputs, err := p.Engine.Forward(ctx, blob)
	elapsed := p.now().Sub(start)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.metrics.FailureCount++
		return nil, err
	}
	m := &p.metrics
	if m.InferenceCount == 0 || elapsed < m.MinTime {
		m.MinTime = elapsed
	}
	if elapsed > m.MaxTime {
		m.MaxTime = elapsed
	}
	m.InferenceCount++
	m.TotalTime += elapsed
	return outputs, nil
}

// Metrics returns a snapshot of the recorded statistics.
func (p *ProfiledEngine) Metrics() Metrics {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.metrics
}

// ResetMetrics clears all performance counters
func (p *ProfiledEngine) ResetMetrics() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = Metrics{}
}
