// Package metrics implements a revs.Backend that counts and times
// the calls it passes to a nested Backend,
// exporting them as Prometheus metrics.
package metrics

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bobg/revs"
	"github.com/bobg/revs/store"
)

var (
	_ revs.Backend = &Backend{}
	_ revs.Wrapper = &Backend{}
)

// Backend instruments a nested Backend.
type Backend struct {
	b revs.Backend

	calls    *prometheus.CounterVec
	failures *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New produces a new Backend whose collectors are registered with reg.
// A second Backend with the same reg and namespace
// reuses the collectors of the first.
// If reg is nil, they are not registered;
// use Collectors to register them elsewhere.
func New(b revs.Backend, reg prometheus.Registerer, namespace string) (*Backend, error) {
	m := &Backend{
		b: b,
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "calls_total",
			Help:      "Backend calls by operation.",
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "failures_total",
			Help:      "Backend calls that returned an error, by operation.",
		}, []string{"op"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "latency_seconds",
			Help:      "Backend call latency by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"op"}),
	}
	if reg == nil {
		return m, nil
	}

	calls, err := register(reg, m.calls)
	if err != nil {
		return nil, err
	}
	failures, err := register(reg, m.failures)
	if err != nil {
		return nil, err
	}
	latency, err := register(reg, m.latency)
	if err != nil {
		return nil, err
	}
	m.calls = calls.(*prometheus.CounterVec)
	m.failures = failures.(*prometheus.CounterVec)
	m.latency = latency.(*prometheus.HistogramVec)

	return m, nil
}

// register registers c with reg.
// If an identical collector is already registered,
// that one is returned instead,
// so Backends created with the same reg and namespace share their metrics.
func register(reg prometheus.Registerer, c prometheus.Collector) (prometheus.Collector, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return are.ExistingCollector, nil
	}
	return nil, errors.Wrap(err, "registering collector")
}

// Collectors returns the Prometheus collectors of m.
func (m *Backend) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.calls, m.failures, m.latency}
}

// Unwrap returns the nested Backend.
func (m *Backend) Unwrap() revs.Backend {
	return m.b
}

func (m *Backend) observe(op string, start time.Time, err error) {
	m.calls.WithLabelValues(op).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.failures.WithLabelValues(op).Inc()
	}
}

func (m *Backend) Keys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := m.b.Keys(ctx)
	m.observe("keys", start, err)
	return keys, err
}

func (m *Backend) Has(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := m.b.Has(ctx, key)
	m.observe("has", start, err)
	return ok, err
}

func (m *Backend) Names(ctx context.Context, key string) ([]string, error) {
	start := time.Now()
	names, err := m.b.Names(ctx, key)
	m.observe("names", start, err)
	return names, err
}

// Read is instrumented like the other calls,
// except that ErrNotFound does not count as a failure.
func (m *Backend) Read(ctx context.Context, key, name string) ([]byte, error) {
	start := time.Now()
	data, err := m.b.Read(ctx, key, name)
	if errors.Is(err, revs.ErrNotFound) {
		m.observe("read", start, nil)
	} else {
		m.observe("read", start, err)
	}
	return data, err
}

func (m *Backend) Create(ctx context.Context, key, name string, data []byte) error {
	start := time.Now()
	err := m.b.Create(ctx, key, name, data)
	m.observe("create", start, err)
	return err
}

func (m *Backend) Remove(ctx context.Context, key, name string) error {
	start := time.Now()
	err := m.b.Remove(ctx, key, name)
	m.observe("remove", start, err)
	return err
}

func (m *Backend) Locate(key, name string) string {
	return m.b.Locate(key, name)
}

func init() {
	store.Register("metrics", func(ctx context.Context, conf map[string]interface{}) (revs.Backend, error) {
		nested, err := store.CreateNested(ctx, conf)
		if err != nil {
			return nil, err
		}
		namespace, _ := conf["namespace"].(string)
		if namespace == "" {
			namespace = "revs"
		}
		return New(nested, prometheus.DefaultRegisterer, namespace)
	})
}
