package observability

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// detailKeys are the low-cardinality payload fields used as the detail label,
// in order of preference.
var detailKeys = []string{"source", "key", "feature", "reason"}

// PrometheusTelemetry counts dashboard events on its own registry.
type PrometheusTelemetry struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

// NewPrometheusTelemetry registers the dashboard collectors on a fresh
// registry.
func NewPrometheusTelemetry(namespace string) *PrometheusTelemetry {
	if namespace == "" {
		namespace = "dashboard"
	}
	t := &PrometheusTelemetry{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Dashboard telemetry events by name.",
			},
			[]string{"event", "detail"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Dashboard telemetry events carrying an error.",
			},
			[]string{"event"},
		),
	}
	t.registry.MustRegister(t.events, t.errors)
	return t
}

// Record implements dashboard.Telemetry.
func (t *PrometheusTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	t.events.WithLabelValues(event, detail(payload)).Inc()
	if _, ok := payload["error"]; ok || strings.HasSuffix(event, ".error") || strings.HasSuffix(event, "_failed") {
		t.errors.WithLabelValues(event).Inc()
	}
}

// Registry exposes the underlying registry.
func (t *PrometheusTelemetry) Registry() *prometheus.Registry {
	return t.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (t *PrometheusTelemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

func detail(payload map[string]any) string {
	for _, key := range detailKeys {
		if v, ok := payload[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// ZapTelemetry logs each event at debug level, or warn when it carries an
// error.
type ZapTelemetry struct {
	log *zap.Logger
}

// NewZapTelemetry wraps logger.
func NewZapTelemetry(logger *zap.Logger) *ZapTelemetry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapTelemetry{log: logger.Named("telemetry")}
}

// Record implements dashboard.Telemetry.
func (t *ZapTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, payload[k]))
	}
	if _, failed := payload["error"]; failed {
		t.log.Warn(event, fields...)
		return
	}
	t.log.Debug(event, fields...)
}

var (
	_ dashboard.Telemetry = (*PrometheusTelemetry)(nil)
	_ dashboard.Telemetry = (*ZapTelemetry)(nil)
)
