// Package metrics exports per-variant and per-file counters to Prometheus.
// A batch run has no scrape endpoint, so the registry is written once as a
// node-exporter textfile at the end of the walk.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/backmassage/mediaopt/internal/encoder"
	"github.com/backmassage/mediaopt/internal/media"
)

const namespace = "mediaopt"

// File results for ObserveFile.
const (
	FileOptimized = "optimized"
	FileFailed    = "failed"
)

// Recorder implements optimize.Recorder on a Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	variants *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	files    *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() (*Recorder, error) {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors on reg. Collectors already
// present on reg are reused.
func NewWithRegistry(reg *prometheus.Registry) (*Recorder, error) {
	r := &Recorder{
		registry: reg,
		variants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variants_total",
			Help:      "Attempted variant encodes by kind, format and result.",
		}, []string{"kind", "format", "result"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variant_bytes_total",
			Help:      "Bytes written for successful variants.",
		}, []string{"kind", "format"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encode_duration_seconds",
			Help:      "Time spent producing one variant.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"format"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Source files handled by the batch walker.",
		}, []string{"result"}),
	}

	collectors := []prometheus.Collector{r.variants, r.bytes, r.duration, r.files}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				collectors[i] = are.ExistingCollector
				continue
			}
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	// Adopt existing collectors so observations land on what reg exports.
	r.variants = collectors[0].(*prometheus.CounterVec)
	r.bytes = collectors[1].(*prometheus.CounterVec)
	r.duration = collectors[2].(*prometheus.HistogramVec)
	r.files = collectors[3].(*prometheus.CounterVec)
	return r, nil
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveVariant records one attempted variant. The result label is "ok" or
// the encoder failure kind ("disk_full", "rejected", ...).
func (r *Recorder) ObserveVariant(kind media.VariantKind, f media.Format, elapsed time.Duration, size int64, err error) {
	if r == nil {
		return
	}
	r.variants.WithLabelValues(kind.String(), f.String(), resultLabel(err)).Inc()
	r.duration.WithLabelValues(f.String()).Observe(elapsed.Seconds())
	if err == nil {
		r.bytes.WithLabelValues(kind.String(), f.String()).Add(float64(size))
	}
}

// ObserveFile counts one source file under result.
func (r *Recorder) ObserveFile(result string) {
	if r == nil {
		return
	}
	r.files.WithLabelValues(result).Inc()
}

// WriteTextfile writes the registry in text exposition format to path,
// atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var ee *encoder.EncodeError
	if errors.As(err, &ee) {
		return ee.Kind.String()
	}
	return "error"
}
