package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/imago-dev/imago/pkg/imaerr"
	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/router"
)

// stubManager returns a fixed outcome and remembers the context it got.
type stubManager struct {
	resp      *page.Response
	err       error
	ctx       context.Context
	preManage int
}

func (m *stubManager) Manage(ctx context.Context, _ route.Handler, _ route.Options, _ route.Params, _ page.Action) (*page.Response, error) {
	m.ctx = ctx
	return m.resp, m.err
}

func (m *stubManager) PreManage() { m.preManage++ }

func manage(t *testing.T, pm router.PageManager, ctx context.Context, name string) (*page.Response, error) {
	t.Helper()
	h := route.New(name, "/"+name, nil, nil)
	return pm.Manage(ctx, h, h.Options(), route.Params{"id": "5"}, page.Action{Type: page.ActionClick, URL: "https://example.com/" + name})
}

func TestWrap(t *testing.T) {
	var order []string
	named := func(name string) Middleware {
		return func(next router.PageManager) router.PageManager {
			return ManagerFunc(func(ctx context.Context, h route.Handler, o route.Options, p route.Params, a page.Action) (*page.Response, error) {
				order = append(order, name)
				return next.Manage(ctx, h, o, p, a)
			})
		}
	}

	inner := &stubManager{resp: &page.Response{Status: http.StatusOK}}
	pm := Wrap(inner, named("outer"), named("inner"))
	if _, err := manage(t, pm, context.Background(), "home"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"outer", "inner"}, order); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}

	pre, ok := pm.(router.PreManager)
	if !ok {
		t.Fatal("wrapped manager lost PreManage")
	}
	pre.PreManage()
	if inner.preManage != 1 {
		t.Errorf("PreManage calls = %d, want 1", inner.preManage)
	}

	if Wrap(inner) != router.PageManager(inner) {
		t.Error("Wrap without middlewares should return the manager")
	}
}

func resetGlobalMetricsForTest() {
	globalMetricsMu.Lock()
	globalMetrics = nil
	globalMetricsMu.Unlock()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestPrometheus(t *testing.T) {
	tests := []struct {
		name       string
		resp       *page.Response
		err        error
		wantStatus string
		wantError  string
	}{
		{name: "rendered", resp: &page.Response{Status: http.StatusOK}, wantStatus: "200"},
		{name: "not found page", resp: &page.Response{Status: http.StatusNotFound}, wantStatus: "404"},
		{name: "aborted", err: page.ErrNavigationAborted, wantStatus: "aborted"},
		{name: "timeout", err: context.DeadlineExceeded, wantStatus: "error", wantError: "timeout"},
		{name: "client error", err: imaerr.WithStatus(http.StatusGone, "gone", nil), wantStatus: "error", wantError: "client"},
		{name: "internal", err: errors.New("boom"), wantStatus: "error", wantError: "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGlobalMetricsForTest()
			pm := Wrap(&stubManager{resp: tt.resp, err: tt.err}, Prometheus(WithRegistry(prometheus.NewRegistry())))

			_, err := manage(t, pm, context.Background(), "article")
			if !errors.Is(err, tt.err) {
				t.Fatalf("error = %v, want %v", err, tt.err)
			}

			c := GetMetrics()
			if c == nil {
				t.Fatal("GetMetrics() = nil after Prometheus()")
			}
			if got := counterValue(t, c.PagesTotal.WithLabelValues("article", tt.wantStatus)); got != 1 {
				t.Errorf("pages_total(%s) = %v, want 1", tt.wantStatus, got)
			}
			if got := histogramCount(t, c.PageDuration.WithLabelValues("article")); got != 1 {
				t.Errorf("page_duration_seconds samples = %d, want 1", got)
			}
			if got := gaugeValue(t, c.InFlight); got != 0 {
				t.Errorf("pages_in_flight = %v, want 0", got)
			}
			if tt.wantError != "" {
				if got := counterValue(t, c.PageErrors.WithLabelValues("article", tt.wantError)); got != 1 {
					t.Errorf("page_errors_total(%s) = %v, want 1", tt.wantError, got)
				}
			}
		})
	}
}

func TestRecordResponse(t *testing.T) {
	resetGlobalMetricsForTest()
	RecordResponse(http.StatusOK) // no metrics yet

	_ = Prometheus(WithRegistry(prometheus.NewRegistry()), WithNamespace("shop"))
	RecordResponse(http.StatusOK)
	RecordResponse(http.StatusOK)

	if got := counterValue(t, GetMetrics().ResponsesSent.WithLabelValues("200")); got != 2 {
		t.Errorf("responses_total(200) = %v, want 2", got)
	}
}

func TestOpenTelemetryPropagatesSpan(t *testing.T) {
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), parent)

	var extracted []string
	inner := &stubManager{resp: &page.Response{Status: http.StatusOK}}
	pm := Wrap(inner, OpenTelemetry(
		WithIncludeParams(true),
		WithAttributeExtractor(func(_ context.Context, h route.Handler, params route.Params) []attribute.KeyValue {
			extracted = append(extracted, h.Name()+":"+params["id"])
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	))

	if _, err := manage(t, pm, ctx, "article"); err != nil {
		t.Fatal(err)
	}
	if got := trace.SpanContextFromContext(inner.ctx).TraceID(); got != parent.TraceID() {
		t.Errorf("trace ID seen by the manager = %v, want %v", got, parent.TraceID())
	}
	if SpanFromContext(inner.ctx) == nil {
		t.Error("no span in the managed context")
	}
	if diff := cmp.Diff([]string{"article:5"}, extracted); diff != "" {
		t.Errorf("extractor calls (-want +got):\n%s", diff)
	}
}

func TestOpenTelemetryErrorPropagates(t *testing.T) {
	want := errors.New("boom")
	pm := Wrap(&stubManager{err: want}, OpenTelemetry())
	if _, err := manage(t, pm, context.Background(), "article"); !errors.Is(err, want) {
		t.Errorf("error = %v, want %v", err, want)
	}
}

func TestOpenTelemetryFilter(t *testing.T) {
	ctx := context.WithValue(context.Background(), struct{}{}, "marker")
	inner := &stubManager{resp: &page.Response{}}
	pm := Wrap(inner, OpenTelemetry(WithRouteFilter(func(h route.Handler) bool {
		return h.Name() != "health"
	})))

	if _, err := manage(t, pm, ctx, "health"); err != nil {
		t.Fatal(err)
	}
	if inner.ctx != ctx {
		t.Error("filtered route got a wrapped context")
	}
}

func TestSpanName(t *testing.T) {
	if got := SpanName(route.New("home", "/", nil, nil)); got != "imago home" {
		t.Errorf("SpanName() = %q", got)
	}
}
