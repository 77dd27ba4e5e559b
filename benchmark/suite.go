package benchmark

import (
	"context"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/go-objdetect/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Detector is the part of detector.Detector a benchmark drives.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]common.BoundingBox, error)
}

// Suite manages and executes benchmark scenarios
type Suite struct {
	detector  Detector
	corpus    []image.Image
	outputDir string
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.RWMutex
	scenarios []Scenario
	results   []PerformanceMetrics
}

// NewSuite creates a new benchmark suite.
//
// Arguments:
//   - detector: The detector under test; the suite does not close it.
//   - corpus: Images cycled through by every scenario.
//   - outputDir: Where SaveResults writes; empty disables saving.
//   - logger: Receives per-scenario summaries; nil discards them.
//
// Returns:
//   - *Suite: The benchmark suite.
func NewSuite(detector Detector, corpus []image.Image, outputDir string, logger *zap.Logger) *Suite {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suite{
		detector:  detector,
		corpus:    corpus,
		outputDir: outputDir,
		logger:    logger,
		now:       time.Now,
		scenarios: make([]Scenario, 0),
		results:   make([]PerformanceMetrics, 0),
	}
}

// AddScenario adds a test scenario to the benchmark suite
func (bs *Suite) AddScenario(scenario Scenario) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.scenarios = append(bs.scenarios, scenario)
}

// AddScenarioSet adds every scenario of set.
func (bs *Suite) AddScenarioSet(set *ScenarioSet) {
	for _, s := range set.Scenarios {
		bs.AddScenario(s)
	}
}

// RunScenario executes a single benchmark scenario.
//
// Detection errors count toward ErrorRate and do not stop the run; a done
// context does.
func (bs *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	if len(bs.corpus) == 0 {
		return nil, errors.New("benchmark corpus is empty")
	}

	corpus := resizeCorpus(bs.corpus, scenario.Resolution)

	for i := 0; i < scenario.WarmupRuns; i++ {
		if _, err := bs.detector.Detect(ctx, corpus[i%len(corpus)]); err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	metrics := &PerformanceMetrics{
		Scenario:  scenario,
		Timestamp: bs.now(),
	}
	latencies := make([]time.Duration, 0, scenario.Iterations)
	failures := 0

	start := bs.now()
	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		began := bs.now()
		boxes, err := bs.detector.Detect(ctx, corpus[i%len(corpus)])
		latencies = append(latencies, bs.now().Sub(began))
		if err != nil {
			failures++
			continue
		}
		metrics.DetectionCount += len(boxes)
	}
	metrics.TotalDuration = bs.now().Sub(start)

	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	metrics.MeanLatency, metrics.P50Latency, metrics.P95Latency = latencyStats(latencies)
	if metrics.TotalDuration > 0 {
		metrics.FramesPerSecond = float64(scenario.Iterations) / metrics.TotalDuration.Seconds()
	}
	metrics.ErrorRate = float64(failures) / float64(scenario.Iterations)
	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:  endMem.HeapAlloc,
		HeapSysBytes:    endMem.HeapSys,
	}
	metrics.CPUStats = CPUMetrics{NumCPU: runtime.NumCPU()}

	bs.logger.Info("scenario finished",
		zap.String("scenario", scenario.Name),
		zap.Duration("mean", metrics.MeanLatency),
		zap.Duration("p95", metrics.P95Latency),
		zap.Float64("fps", metrics.FramesPerSecond),
		zap.Int("detections", metrics.DetectionCount),
		zap.Float64("error_rate", metrics.ErrorRate))

	bs.mu.Lock()
	bs.results = append(bs.results, *metrics)
	bs.mu.Unlock()

	return metrics, nil
}

// RunAll runs every added scenario in order and stops at the first error.
func (bs *Suite) RunAll(ctx context.Context) error {
	bs.mu.RLock()
	scenarios := append([]Scenario(nil), bs.scenarios...)
	bs.mu.RUnlock()

	for _, s := range scenarios {
		if _, err := bs.RunScenario(ctx, s); err != nil {
			return errors.Wrapf(err, "scenario %s", s.Name)
		}
	}
	return nil
}

// Results returns the metrics of every finished scenario.
func (bs *Suite) Results() []PerformanceMetrics {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return append([]PerformanceMetrics(nil), bs.results...)
}

// SaveResults writes the results as indented JSON to name inside the output
// directory and returns the file path.
func (bs *Suite) SaveResults(name string) (string, error) {
	if bs.outputDir == "" {
		return "", errors.New("no output directory configured")
	}
	if err := os.MkdirAll(bs.outputDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", bs.outputDir)
	}

	data, err := json.MarshalIndent(bs.Results(), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode results")
	}
	path := filepath.Join(bs.outputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}

func resizeCorpus(corpus []image.Image, size image.Point) []image.Image {
	if size == (image.Point{}) {
		return corpus
	}
	out := make([]image.Image, len(corpus))
	for i, img := range corpus {
		out[i] = imaging.Resize(img, size.X, size.Y, imaging.Linear)
	}
	return out
}
