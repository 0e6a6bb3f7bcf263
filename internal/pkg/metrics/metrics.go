// Package metrics exports scan counters to Prometheus.
package metrics

import (
	"runtime"
	"time"

	"github.com/endorses/stringmatch/internal/pkg/ahocorasick"
	"github.com/endorses/stringmatch/internal/pkg/matcher"
	"github.com/endorses/stringmatch/internal/pkg/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "stringmatch"

// Collector holds the scan metrics of one process.
type Collector struct {
	registry *prometheus.Registry

	packets         prometheus.Counter
	bytes           prometheus.Counter
	matches         *prometheus.CounterVec
	gotos           prometheus.Counter
	failures        prometheus.Counter
	heavy           prometheus.Counter
	compileDuration *prometheus.HistogramVec
	patterns        prometheus.Gauge
	states          prometheus.Gauge
	reloads         *prometheus.CounterVec
}

// New creates a Collector on its own registry, together with the Go
// runtime and process collectors.
func New() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{
		registry: registry,
		packets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_scanned_total",
			Help:      "Total number of packets scanned",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_scanned_total",
			Help:      "Total number of payload bytes scanned",
		}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_matched_total",
			Help:      "Packets in which at least one pattern was found",
		}, []string{"matcher"}),
		gotos: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "automaton_gotos_total",
			Help:      "Explicit automaton transitions taken",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "automaton_failures_total",
			Help:      "Automaton failure links followed",
		}),
		heavy: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heavy_payloads_total",
			Help:      "Payloads whose uncommon state rate exceeded the limit",
		}),
		compileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compile_duration_seconds",
			Help:      "Time spent compiling a pattern set",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}, []string{"matcher"}),
		patterns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "patterns",
			Help:      "Number of patterns in the active matcher",
		}),
		states: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "automaton_states",
			Help:      "Number of states of the active automaton",
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pattern_reloads_total",
			Help:      "Pattern file reloads by result",
		}, []string{"result"}),
	}

	buildInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information, always 1",
	}, []string{"version", "user_agent", "goversion"})
	buildInfo.WithLabelValues(version.GetVersion(), version.UserAgent(), runtime.Version()).Set(1)

	registry.MustRegister(
		c.packets, c.bytes, c.matches, c.gotos, c.failures, c.heavy,
		c.compileDuration, c.patterns, c.states, c.reloads, buildInfo,
	)
	return c
}

// Registry returns the registry the metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObservePacket counts one scanned payload.
func (c *Collector) ObservePacket(kind matcher.Kind, size int, matched bool) {
	c.packets.Inc()
	c.bytes.Add(float64(size))
	if matched {
		c.matches.WithLabelValues(kind.String()).Inc()
	}
}

// ObserveScan adds the transition counts of automaton scans.
func (c *Collector) ObserveScan(stats ahocorasick.MachineStats, heavy bool) {
	c.gotos.Add(float64(stats.Gotos))
	c.failures.Add(float64(stats.Failures))
	if heavy {
		c.heavy.Inc()
	}
}

// ObserveCompile records a finished build of the active matcher.
func (c *Collector) ObserveCompile(stats matcher.Stats, d time.Duration) {
	c.compileDuration.WithLabelValues(stats.Kind.String()).Observe(d.Seconds())
	c.patterns.Set(float64(stats.Patterns))
	c.states.Set(float64(stats.States))
}

// ObserveReload counts a pattern reload attempt.
func (c *Collector) ObserveReload(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	c.reloads.WithLabelValues(result).Inc()
}
