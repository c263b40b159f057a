package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			var total float64
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			return total
		}
	}
	t.Fatalf("%s metric not found", name)
	return 0
}

// TestRecordExperimentCreated_IncrementsCounter は実験作成カウンタが増加することを検証する。
func TestRecordExperimentCreated_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordExperimentCreated()
	c.RecordExperimentCreated()

	if got := counterValue(t, reg, "labnote_experiments_created_total"); got != 2 {
		t.Errorf("experiments_created_total = %v, want 2", got)
	}
}

// TestRecordAttributeReconciled_LabelsByKind は属性解決カウンタが種別ラベル付きで増加することを検証する。
func TestRecordAttributeReconciled_LabelsByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAttributeReconciled("tag")
	c.RecordAttributeReconciled("tag")
	c.RecordAttributeReconciled("ingredient")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() != "labnote_attributes_reconciled_total" {
			continue
		}
		found = true
		if len(mf.GetMetric()) != 2 {
			t.Fatalf("expected 2 label values, got %d", len(mf.GetMetric()))
		}
		for _, m := range mf.GetMetric() {
			kind := m.GetLabel()[0].GetValue()
			val := m.GetCounter().GetValue()
			switch kind {
			case "tag":
				if val != 2 {
					t.Errorf("tag = %v, want 2", val)
				}
			case "ingredient":
				if val != 1 {
					t.Errorf("ingredient = %v, want 1", val)
				}
			default:
				t.Errorf("unexpected kind label %q", kind)
			}
		}
	}
	if !found {
		t.Error("labnote_attributes_reconciled_total metric not found")
	}
}

// TestRecordHTTPStatus_LabelsByCode はHTTPステータスカウンタがコード別に増加することを検証する。
func TestRecordHTTPStatus_LabelsByCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	if got := counterValue(t, reg, "labnote_http_status_total"); got != 3 {
		t.Errorf("http_status_total = %v, want 3", got)
	}
}

// TestRecordTokensCleaned_AddsCount はトークン削除カウンタが件数分加算されることを検証する。
func TestRecordTokensCleaned_AddsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTokensCleaned(5)
	c.RecordTokensCleaned(3)

	if got := counterValue(t, reg, "labnote_tokens_cleaned_total"); got != 8 {
		t.Errorf("tokens_cleaned_total = %v, want 8", got)
	}
}

// TestSetupMetricsRoute_ServesPrometheusFormat は/metricsがPrometheus形式で応答することを検証する。
func TestSetupMetricsRoute_ServesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordExperimentCreated()
	c.RecordRequestLatency(10 * time.Millisecond)

	handler := SetupMetricsRoute(reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	body, err := io.ReadAll(w.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "labnote_experiments_created_total 1") {
		t.Errorf("response does not contain experiments counter: %s", body)
	}
	if !strings.Contains(string(body), "labnote_request_latency_seconds") {
		t.Error("response does not contain latency histogram")
	}
}
