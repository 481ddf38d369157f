// Package benchmark measures how expensive a parquet file is to load.
//
// A measurement decodes every record batch of the file with pqarrow a number
// of times and keeps the fastest run. Its cost adds that time in
// milliseconds to the file size in MiB, so a rewrite that shrinks a file
// without slowing its decode lowers the cost.
//
//	m, err := benchmark.Measure(ctx, "data.parquet", benchmark.Options{Iterations: 5})
//	fmt.Printf("%.2f ms, %.2f MB, cost %.2f\n", m.LoadingTimeMs, m.FileSizeMB, m.Cost)
package benchmark

import (
	"context"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/ajitpratap0/parquet-linter/pkg/config"
	"github.com/ajitpratap0/parquet-linter/pkg/errors"
	"github.com/ajitpratap0/parquet-linter/pkg/logger"
	"github.com/ajitpratap0/parquet-linter/pkg/observability"
)

const (
	defaultBatchSize = 8192
	rssInterval      = 10 * time.Millisecond
)

// Options controls a measurement
type Options struct {
	// Iterations is the number of full decodes; 0 means 1
	Iterations int
	// BatchSize is the number of rows per record batch; 0 means 8192
	BatchSize int64

	Logger *zap.Logger
}

// OptionsFrom converts the benchmark section of the configuration
func OptionsFrom(cfg config.BenchmarkConfig, log *zap.Logger) Options {
	return Options{Iterations: cfg.Iterations, BatchSize: cfg.BatchSize, Logger: log}
}

// Measurement is the load cost of one file
type Measurement struct {
	Path string `json:"path"`
	// LoadingTimeMs is the fastest full decode in milliseconds
	LoadingTimeMs float64 `json:"loading_time_ms"`
	FileSizeMB    float64 `json:"file_size_mb"`
	SizeBytes     int64   `json:"size_bytes"`
	// Cost is LoadingTimeMs + FileSizeMB
	Cost       float64 `json:"cost"`
	Rows       int64   `json:"rows"`
	Iterations int     `json:"iterations"`
	// PeakRSSBytes is the highest resident set size seen while decoding,
	// zero when the platform does not report it
	PeakRSSBytes uint64 `json:"peak_rss_bytes"`
}

// Cost combines a decode time and a file size into a single figure
func Cost(loadingTimeMs, fileSizeMB float64) float64 {
	return loadingTimeMs + fileSizeMB
}

// Measure decodes path opts.Iterations times and reports the fastest run. A
// decode failure ends the measurement.
func Measure(ctx context.Context, path string, opts Options) (*Measurement, error) {
	if opts.Iterations <= 0 {
		opts.Iterations = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	log := logger.OrGlobal(opts.Logger).With(zap.String("component", "benchmark"), zap.String("path", path))

	ctx, span := observability.StartSpan(ctx, "benchmark")
	defer span.End()
	span.SetAttribute("path", path)
	span.SetAttribute("iterations", opts.Iterations)

	info, err := os.Stat(path)
	if err != nil {
		err = errors.Wrap(err, errors.ErrorTypeIO, "failed to stat file").WithDetail("path", path)
		span.Fail(err)
		return nil, err
	}

	monitor := newRSSMonitor()
	defer monitor.stop()

	best := math.Inf(1)
	var rows int64
	mem := memory.NewGoAllocator()
	for i := 0; i < opts.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			span.Fail(err)
			return nil, err
		}
		elapsed, n, err := decode(ctx, path, opts.BatchSize, mem)
		if err != nil {
			span.Fail(err)
			return nil, err
		}
		rows = n
		ms := float64(elapsed) / float64(time.Millisecond)
		best = math.Min(best, ms)
		log.Debug("decode iteration", zap.Int("iteration", i), zap.Float64("ms", ms), zap.Int64("rows", n))
	}

	sizeMB := float64(info.Size()) / (1024 * 1024)
	m := &Measurement{
		Path:          path,
		LoadingTimeMs: best,
		FileSizeMB:    sizeMB,
		SizeBytes:     info.Size(),
		Cost:          Cost(best, sizeMB),
		Rows:          rows,
		Iterations:    opts.Iterations,
		PeakRSSBytes:  monitor.stop(),
	}
	span.SetAttribute("cost", m.Cost)
	log.Info("measured file",
		zap.Float64("loading_time_ms", m.LoadingTimeMs),
		zap.Float64("file_size_mb", m.FileSizeMB),
		zap.Float64("cost", m.Cost))
	return m, nil
}

// decode reads every record batch of path and returns the elapsed time and
// the row count
func decode(ctx context.Context, path string, batchSize int64, mem memory.Allocator) (time.Duration, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrorTypeIO, "failed to open file").WithDetail("path", path)
	}
	reader, err := file.NewParquetReader(f)
	if err != nil {
		f.Close()
		return 0, 0, errors.Wrap(err, errors.ErrorTypeDecode, "failed to open parquet file").WithDetail("path", path)
	}
	defer reader.Close()

	start := time.Now()
	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{BatchSize: batchSize}, mem)
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrorTypeDecode, "failed to create arrow reader")
	}
	records, err := arrowReader.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrorTypeDecode, "failed to read records")
	}
	defer records.Release()

	var rows int64
	for records.Next() {
		rows += records.Record().NumRows()
	}
	if err := records.Err(); err != nil && err != io.EOF {
		return 0, 0, errors.Wrap(err, errors.ErrorTypeDecode, "failed to decode records").WithDetail("path", path)
	}
	return time.Since(start), rows, nil
}

// rssMonitor samples the resident set size of this process until stopped
type rssMonitor struct {
	proc *process.Process
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
	mu   sync.Mutex
	peak uint64
}

func newRSSMonitor() *rssMonitor {
	m := &rssMonitor{done: make(chan struct{})}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return m
	}
	m.proc = proc
	m.sample()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(rssInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.done:
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()
	return m
}

func (m *rssMonitor) sample() {
	info, err := m.proc.MemoryInfo()
	if err != nil {
		return
	}
	m.mu.Lock()
	m.peak = max(m.peak, info.RSS)
	m.mu.Unlock()
}

// stop ends sampling and returns the peak. It is safe to call more than once.
func (m *rssMonitor) stop() uint64 {
	m.once.Do(func() {
		close(m.done)
		m.wg.Wait()
		if m.proc != nil {
			m.sample()
		}
	})
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}
