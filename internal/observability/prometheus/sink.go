// Package prometheus exposes outbound metrics through a dedicated Prometheus registry.
// Sink implements statsd.Sink so the pipeline emits each metric once and the
// statsd.Multi fan-out delivers it to both backends.
package prometheus

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/target/mmk-outbound/internal/observability/statsd"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "mmk"

// DefaultLabels fixes the label set of the metrics the pipeline emits. Metrics not
// listed here take the label keys of their first observation.
var DefaultLabels = map[string][]string{
	"outbound.transition":     {"channel", "transition", "result", "error_class"},
	"outbound.send.duration":  {"channel", "transition", "result", "error_class"},
	"outbound.batch.claimed":  {"result"},
	"outbound.batch.duration": {"result"},
}

// Options configures a Sink.
type Options struct {
	Namespace string
	Labels    map[string][]string
	// Registry defaults to a fresh registry with Go runtime and process collectors.
	Registry *prometheus.Registry
}

// Sink records statsd-style metrics as Prometheus counters, gauges and histograms.
type Sink struct {
	namespace string
	labels    map[string][]string
	registry  *prometheus.Registry
	factory   promauto.Factory

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

var _ statsd.Sink = (*Sink)(nil)

// NewSink builds a Sink with its own registry.
func NewSink(opts Options) *Sink {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	ns := strings.TrimSpace(opts.Namespace)
	if ns == "" {
		ns = DefaultNamespace
	}
	labels := make(map[string][]string, len(DefaultLabels)+len(opts.Labels))
	for k, v := range DefaultLabels {
		labels[k] = v
	}
	for k, v := range opts.Labels {
		labels[k] = v
	}

	return &Sink{
		namespace:  ns,
		labels:     labels,
		registry:   reg,
		factory:    promauto.With(reg),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry returns the registry backing the sink.
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// Count adds value to a counter named <name>_total.
func (s *Sink) Count(name string, value int64, tags map[string]string) {
	if value < 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.labelKeys(name, tags)
	vec, ok := s.counters[name]
	if !ok {
		vec = s.factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: s.namespace,
			Name:      metricName(name) + "_total",
			Help:      "Count of " + name + " events.",
		}, keys)
		s.counters[name] = vec
	}
	vec.WithLabelValues(labelValues(keys, tags)...).Add(float64(value))
}

// Gauge sets a gauge to value.
func (s *Sink) Gauge(name string, value float64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.labelKeys(name, tags)
	vec, ok := s.gauges[name]
	if !ok {
		vec = s.factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: s.namespace,
			Name:      metricName(name),
			Help:      "Last observed " + name + ".",
		}, keys)
		s.gauges[name] = vec
	}
	vec.WithLabelValues(labelValues(keys, tags)...).Set(value)
}

// Timing observes value in seconds on a histogram named <name>_seconds.
func (s *Sink) Timing(name string, value time.Duration, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.labelKeys(name, tags)
	vec, ok := s.histograms[name]
	if !ok {
		vec = s.factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: s.namespace,
			Name:      metricName(name) + "_seconds",
			Help:      "Duration of " + name + ".",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, keys)
		s.histograms[name] = vec
	}
	vec.WithLabelValues(labelValues(keys, tags)...).Observe(value.Seconds())
}

// labelKeys returns the fixed label set for name, recording the sorted tag keys on
// first sight. Callers hold s.mu.
func (s *Sink) labelKeys(name string, tags map[string]string) []string {
	if keys, ok := s.labels[name]; ok {
		return keys
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		if k = labelName(k); k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	s.labels[name] = keys
	return keys
}

// labelValues projects tags onto keys; missing tags become empty values and
// unknown tags are dropped.
func labelValues(keys []string, tags map[string]string) []string {
	normalized := make(map[string]string, len(tags))
	for k, v := range tags {
		normalized[labelName(k)] = v
	}
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = normalized[k]
	}
	return values
}

func metricName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(name))
}

func labelName(k string) string {
	return metricName(k)
}
