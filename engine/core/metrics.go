package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const AVG_COUNT uint8 = 30

const metricsNamespace = "framegraph"

// Metrics keeps the rolling frame timings and the frame graph counters.
// Every method is safe to call on a nil *Metrics.
type Metrics struct {
	frameAVGCounter    uint8
	msTimes            [AVG_COUNT]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64

	registry *prometheus.Registry

	FramesRendered  prometheus.Counter
	PassesExecuted  prometheus.Counter
	PassesCulled    prometheus.Counter
	PassFailures    prometheus.Counter
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	CacheEvictions  prometheus.Counter
	PooledResources prometheus.Gauge
	FrameTime       prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FramesRendered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_rendered_total",
			Help:      "Number of frame graphs executed.",
		}),
		PassesExecuted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "passes_executed_total",
			Help:      "Number of device passes executed.",
		}),
		PassesCulled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "passes_culled_total",
			Help:      "Number of declared passes removed during compilation.",
		}),
		PassFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pass_failures_total",
			Help:      "Number of device passes that reported an error.",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "transient_cache",
			Name:      "hits_total",
			Help:      "Transient resource requests served from the pool.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "transient_cache",
			Name:      "misses_total",
			Help:      "Transient resource requests that fell through to the device.",
		}),
		CacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "transient_cache",
			Name:      "evictions_total",
			Help:      "Pooled objects destroyed after sitting idle too long.",
		}),
		PooledResources: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "transient_cache",
			Name:      "pooled_resources",
			Help:      "Objects currently sitting in the transient pool.",
		}),
		FrameTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "frame_time_ms",
			Help:      "Average frame time in milliseconds.",
		}),
	}
}

// Registry exposes the private registry, e.g. for promhttp.HandlerFor.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Update(frameElapsedTime float64) {
	if m == nil {
		return
	}
	// Calculate frame ms average
	frameMS := frameElapsedTime * 1000.0
	m.msTimes[m.frameAVGCounter] = frameMS
	if m.frameAVGCounter == AVG_COUNT-1 {
		m.msAvg = 0
		for i := uint8(0); i < AVG_COUNT; i++ {
			m.msAvg += m.msTimes[i]
		}
		m.msAvg /= float64(AVG_COUNT)
		m.FrameTime.Set(m.msAvg)
	}
	m.frameAVGCounter++
	m.frameAVGCounter %= AVG_COUNT

	// Calculate frames per second.
	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}

	m.frames++
	m.FramesRendered.Inc()
}

func (m *Metrics) FPS() float64 {
	if m == nil {
		return 0
	}
	return m.fps
}

func (m *Metrics) FrameTimeMS() float64 {
	if m == nil {
		return 0
	}
	return m.msAvg
}

func (m *Metrics) PassExecuted(failed bool) {
	if m == nil {
		return
	}
	m.PassesExecuted.Inc()
	if failed {
		m.PassFailures.Inc()
	}
}

func (m *Metrics) PassCulled(count int) {
	if m == nil {
		return
	}
	m.PassesCulled.Add(float64(count))
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
		return
	}
	m.CacheMisses.Inc()
}

func (m *Metrics) CacheEvicted(count int) {
	if m == nil {
		return
	}
	m.CacheEvictions.Add(float64(count))
}

func (m *Metrics) CachePooled(count int) {
	if m == nil {
		return
	}
	m.PooledResources.Set(float64(count))
}
