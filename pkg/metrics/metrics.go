package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"go.uber.org/zap"
)

// Point is a single stored sample
type Point struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

var (
	mu       sync.Mutex
	storage  tstorage.Storage
	counters = map[string]int64{}
)

// InitMetrics opens the time series storage under <workdir>/data/metrics
func InitMetrics(workdir string) error {
	mu.Lock()
	defer mu.Unlock()
	if storage != nil {
		return nil
	}
	dataPath := filepath.Join(workdir, "data", "metrics")
	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return err
	}
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(dataPath),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(30*24*time.Hour),
	)
	if err != nil {
		return err
	}
	storage = s
	return nil
}

func insert(name string, value float64) {
	if storage == nil {
		return
	}
	err := storage.InsertRows([]tstorage.Row{{
		Metric:    name,
		DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: value},
	}})
	if err != nil {
		zap.L().Warn("record metric failed", zap.String("metric", name), zap.Error(err), zap.String("namespace", "metrics"))
	}
}

// lastStored returns the highest stored total of a counter, so totals
// continue across restarts. Caller holds mu.
func lastStored(name string) int64 {
	points, err := storage.Select(name, nil, 0, time.Now().Unix()+1)
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return 0
	}
	if err != nil {
		zap.L().Warn("load metric failed", zap.String("metric", name), zap.Error(err), zap.String("namespace", "metrics"))
		return 0
	}
	var total float64
	for _, p := range points {
		if p.Value > total {
			total = p.Value
		}
	}
	return int64(total)
}

// SetGauge records the current value of a gauge
func SetGauge(name string, value int64) {
	mu.Lock()
	defer mu.Unlock()
	insert(name, float64(value))
}

// Incr bumps a counter and records its running total
func Incr(name string) int64 {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := counters[name]; !ok && storage != nil {
		counters[name] = lastStored(name)
	}
	counters[name]++
	insert(name, float64(counters[name]))
	return counters[name]
}

// Counter returns the current value of a counter
func Counter(name string) int64 {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := counters[name]; !ok && storage != nil {
		counters[name] = lastStored(name)
	}
	return counters[name]
}

// Query returns the samples of a metric recorded since the given time
func Query(name string, since time.Time) ([]Point, error) {
	mu.Lock()
	s := storage
	mu.Unlock()
	if s == nil {
		return []Point{}, nil
	}
	points, err := s.Select(name, nil, since.Unix(), time.Now().Unix()+1)
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return []Point{}, nil
	}
	if err != nil {
		return nil, err
	}
	result := make([]Point, 0, len(points))
	for _, p := range points {
		result = append(result, Point{Timestamp: p.Timestamp, Value: p.Value})
	}
	return result, nil
}

// Close flushes and closes the storage
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
