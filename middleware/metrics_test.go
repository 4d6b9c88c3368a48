package middleware_test

import (
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	mw "github.com/xraph/queuectl/middleware"
)

func setupTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// runsByOutcome sums queuectl.command.runs per outcome attribute.
func runsByOutcome(t *testing.T, rm metricdata.ResourceMetrics) map[string]int64 {
	t.Helper()
	m := findMetric(rm, "queuectl.command.runs")
	if m == nil {
		t.Fatal("queuectl.command.runs metric not found")
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", m.Data)
	}
	out := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value("outcome")
		out[v.AsString()] += dp.Value
	}
	return out
}

func TestMetrics_RecordsDuration(t *testing.T) {
	reader, mp := setupTestMeter()
	m := mw.MetricsWithMeter(mp.Meter("test"))

	_ = m(context.Background(), newTestJob(), func(context.Context) error { return nil })

	metric := findMetric(collectMetrics(t, reader), "queuectl.command.duration")
	if metric == nil {
		t.Fatal("queuectl.command.duration metric not found")
	}
	hist, ok := metric.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", metric.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Fatalf("expected one data point with count 1, got %+v", hist.DataPoints)
	}
	code, _ := hist.DataPoints[0].Attributes.Value("exit_code")
	if code.AsInt64() != 0 {
		t.Errorf("exit_code = %d, want 0", code.AsInt64())
	}
}

func TestMetrics_Outcomes(t *testing.T) {
	reader, mp := setupTestMeter()
	m := mw.MetricsWithMeter(mp.Meter("test"))
	j := newTestJob()

	results := []error{nil, nil, codeErr(1), codeErr(127), codeErr(124), errors.New("fault")}
	for _, res := range results {
		_ = m(context.Background(), j, func(context.Context) error { return res })
	}

	got := runsByOutcome(t, collectMetrics(t, reader))
	want := map[string]int64{"success": 2, "failure": 3, "timeout": 1}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("runs[%s] = %d, want %d (all: %v)", k, got[k], v, got)
		}
	}
}

func TestMetrics_DefaultNoopSafe(t *testing.T) {
	called := false
	err := mw.Metrics()(context.Background(), newTestJob(), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("called=%v err=%v", called, err)
	}
}
