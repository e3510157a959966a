// Package metrics exposes pipeline counters and timings to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kepler_counter"

// Metrics holds the collectors for one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	framesRead       prometheus.Counter
	framesProcessed  prometheus.Counter
	detections       *prometheus.CounterVec
	activeTracks     prometheus.Gauge
	crossings        prometheus.Counter
	crossingTotal    prometheus.Gauge
	frameProcessTime prometheus.Histogram
	throughput       prometheus.Gauge
}

// New creates the collectors and registers them on reg. Nil buckets fall back
// to prometheus.DefBuckets.
func New(reg prometheus.Registerer, frameTimeBuckets []float64) (*Metrics, error) {
	if frameTimeBuckets == nil {
		frameTimeBuckets = prometheus.DefBuckets
	}

	m := &Metrics{
		framesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_read_total",
			Help:      "Frames read from the input stream, including skipped ones.",
		}),
		framesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Frames that went through detection, tracking and rendering.",
		}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Raw detector records by filter outcome.",
		}, []string{"outcome"}),
		activeTracks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_tracks",
			Help:      "Live tracks after the last tracker update.",
		}),
		crossings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crossings_total",
			Help:      "Completed line crossings.",
		}),
		crossingTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "crossing_count",
			Help:      "Current value of the crossing counter.",
		}),
		frameProcessTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_processing_seconds",
			Help:      "Wall time spent on one processed frame.",
			Buckets:   frameTimeBuckets,
		}),
		throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "throughput_fps",
			Help:      "Processed frames per second since the run started.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.framesRead,
		m.framesProcessed,
		m.detections,
		m.activeTracks,
		m.crossings,
		m.crossingTotal,
		m.frameProcessTime,
		m.throughput,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) FrameRead() {
	if m == nil {
		return
	}
	m.framesRead.Inc()
}

// FrameProcessed records one processed frame and its wall time.
func (m *Metrics) FrameProcessed(d time.Duration) {
	if m == nil {
		return
	}
	m.framesProcessed.Inc()
	m.frameProcessTime.Observe(d.Seconds())
}

// Detections records the filter outcome of one frame.
func (m *Metrics) Detections(kept, malformed, rejectedClass, rejectedScore int) {
	if m == nil {
		return
	}
	m.detections.WithLabelValues("kept").Add(float64(kept))
	m.detections.WithLabelValues("malformed").Add(float64(malformed))
	m.detections.WithLabelValues("rejected_class").Add(float64(rejectedClass))
	m.detections.WithLabelValues("rejected_score").Add(float64(rejectedScore))
}

func (m *Metrics) ActiveTracks(n int) {
	if m == nil {
		return
	}
	m.activeTracks.Set(float64(n))
}

// Crossings records newly completed crossings and the counter value.
func (m *Metrics) Crossings(added, total int) {
	if m == nil {
		return
	}
	m.crossings.Add(float64(added))
	m.crossingTotal.Set(float64(total))
}

func (m *Metrics) Throughput(fps float64) {
	if m == nil {
		return
	}
	m.throughput.Set(fps)
}
