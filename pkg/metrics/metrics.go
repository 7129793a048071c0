package metrics

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
)

var (
	storage tstorage.Storage
	mu      sync.Mutex

	counters   = map[string]int64{}
	countersMu sync.Mutex
)

// InitMetrics opens the embedded time-series store under the application
// workdir. Safe to call once at startup.
func InitMetrics(workdir string) error {
	mu.Lock()
	defer mu.Unlock()
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(filepath.Join(workdir, "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(30*24*time.Hour),
	)
	if err != nil {
		return err
	}
	storage = s
	return nil
}

// SetGauge records an instantaneous value for the named metric.
func SetGauge(name string, value int64) {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return
	}
	_ = storage.InsertRows([]tstorage.Row{
		{
			Metric:    name,
			DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: float64(value)},
		},
	})
}

// IncrCounter bumps a monotonically increasing counter and records the new
// total as a data point.
func IncrCounter(name string, delta int64) {
	countersMu.Lock()
	counters[name] += delta
	total := counters[name]
	countersMu.Unlock()
	SetGauge(name, total)
}

// CounterValue returns the in-process counter total.
func CounterValue(name string) int64 {
	countersMu.Lock()
	defer countersMu.Unlock()
	return counters[name]
}

// Query returns datapoints for a metric in the [start, end] range.
func Query(name string, start, end int64) ([]*tstorage.DataPoint, error) {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil, nil
	}
	return storage.Select(name, nil, start, end)
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
