package metrics

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"
)

// Metric names.
const (
	ScrapesTotal       = "predictor_scrapes_total"
	ProviderCallsTotal = "predictor_provider_calls_total"
	RoundsTotal        = "predictor_rounds_total"
	LastConfidence     = "predictor_last_confidence"
	ProviderLatency    = "predictor_provider_latency_seconds"
)

// Result label values.
const (
	OK   = "ok"
	Fail = "fail"
)

type family struct {
	help   string
	typ    dto.MetricType
	labels []string
	values map[string]float64 // joined label values -> value
}

// Registry holds a fixed set of counters and gauges and renders them in the
// Prometheus exposition format. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	families map[string]*family
}

// New creates a Registry with the predictor's metric families registered.
func New() *Registry {
	r := &Registry{families: make(map[string]*family)}
	r.register(ScrapesTotal, "Upstream history scrapes by source and result.", dto.MetricType_COUNTER, "source", "result")
	r.register(ProviderCallsTotal, "Model provider calls by provider and result.", dto.MetricType_COUNTER, "provider", "result")
	r.register(RoundsTotal, "Finished prediction rounds by status and data source.", dto.MetricType_COUNTER, "status", "data")
	r.register(LastConfidence, "Display confidence of the last ensemble box.", dto.MetricType_GAUGE)
	r.register(ProviderLatency, "Duration of the last call per provider.", dto.MetricType_GAUGE, "provider")
	return r
}

func (r *Registry) register(name, help string, typ dto.MetricType, labels ...string) {
	r.families[name] = &family{help: help, typ: typ, labels: labels, values: make(map[string]float64)}
}

// Add increments a counter. Unknown names and label counts are ignored.
func (r *Registry) Add(name string, delta float64, labelValues ...string) {
	r.update(name, labelValues, func(v float64) float64 { return v + delta })
}

// Inc increments a counter by one.
func (r *Registry) Inc(name string, labelValues ...string) { r.Add(name, 1, labelValues...) }

// Set sets a gauge.
func (r *Registry) Set(name string, value float64, labelValues ...string) {
	r.update(name, labelValues, func(float64) float64 { return value })
}

func (r *Registry) update(name string, labelValues []string, fn func(float64) float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[name]
	if !ok || len(labelValues) != len(f.labels) {
		zap.L().Debug("metrics: dropped sample", zap.String("name", name), zap.Strings("labels", labelValues))
		return
	}
	k := strings.Join(labelValues, "\xff")
	f.values[k] = fn(f.values[k])
}

// Value returns the current value of one series.
func (r *Registry) Value(name string, labelValues ...string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[name]
	if !ok {
		return 0
	}
	return f.values[strings.Join(labelValues, "\xff")]
}

// Gather snapshots every family with at least one series, sorted by name.
func (r *Registry) Gather() []*dto.MetricFamily {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.families))
	for n, f := range r.families {
		if len(f.values) > 0 {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	out := make([]*dto.MetricFamily, 0, len(names))
	for _, n := range names {
		f := r.families[n]
		mf := &dto.MetricFamily{Name: ptr(n), Help: ptr(f.help), Type: f.typ.Enum()}

		keys := make([]string, 0, len(f.values))
		for k := range f.values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m := &dto.Metric{}
			if len(f.labels) > 0 {
				for i, v := range strings.Split(k, "\xff") {
					m.Label = append(m.Label, &dto.LabelPair{Name: ptr(f.labels[i]), Value: ptr(v)})
				}
			}
			v := f.values[k]
			if f.typ == dto.MetricType_COUNTER {
				m.Counter = &dto.Counter{Value: ptr(v)}
			} else {
				m.Gauge = &dto.Gauge{Value: ptr(v)}
			}
			mf.Metric = append(mf.Metric, m)
		}
		out = append(out, mf)
	}
	return out
}

// Handler serves the registry in the format negotiated from Accept.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		format := expfmt.Negotiate(req.Header)
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, mf := range r.Gather() {
			if err := enc.Encode(mf); err != nil {
				zap.L().Warn("metrics: encode failed", zap.String("family", mf.GetName()), zap.Error(err))
				return
			}
		}
	})
}

func ptr[T any](v T) *T { return &v }
