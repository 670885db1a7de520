package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は指定名・ラベル値に一致するメトリクスを返す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordAuthorization_CountsByOutcome は認可判定が結果ラベル別に集計されることを検証する。
func TestRecordAuthorization_CountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthorization(OutcomeAllowed)
	c.RecordAuthorization(OutcomeAllowed)
	c.RecordAuthorization(OutcomeForbidden)

	tests := []struct {
		outcome string
		want    float64
	}{
		{OutcomeAllowed, 2},
		{OutcomeForbidden, 1},
	}
	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			m := findMetric(t, reg, "fitadmin_authorization_total", map[string]string{"outcome": tt.outcome})
			if m == nil {
				t.Fatal("metric not found")
			}
			if got := m.GetCounter().GetValue(); got != tt.want {
				t.Errorf("authorization_total{outcome=%s} = %v, want %v", tt.outcome, got, tt.want)
			}
		})
	}

	if m := findMetric(t, reg, "fitadmin_authorization_total", map[string]string{"outcome": OutcomeCheckFailed}); m != nil {
		t.Error("check_failed should not be recorded")
	}
}

// TestRecordCompensation_CountsByOperationAndResult は補償処理がラベル付きで集計されることを検証する。
func TestRecordCompensation_CountsByOperationAndResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCompensation("create_user", CompensationSucceeded)
	c.RecordCompensation("create_user", CompensationFailed)
	c.RecordCompensation("create_user", CompensationFailed)

	m := findMetric(t, reg, "fitadmin_compensation_total", map[string]string{"operation": "create_user", "result": CompensationFailed})
	if m == nil {
		t.Fatal("metric not found")
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Errorf("compensation_total{result=failed} = %v, want 2", got)
	}
}

// TestRecordConsistencyWarning_IncrementsCounter は不整合警告カウンタが増加することを検証する。
func TestRecordConsistencyWarning_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordConsistencyWarning("orphaned_identity")

	m := findMetric(t, reg, "fitadmin_consistency_warning_total", map[string]string{"kind": "orphaned_identity"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("consistency_warning_total = %v, want 1", m)
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(403)

	if m := findMetric(t, reg, "fitadmin_http_status_total", map[string]string{"status_code": "200"}); m.GetCounter().GetValue() != 2 {
		t.Errorf("http_status_total{status_code=200} = %v, want 2", m.GetCounter().GetValue())
	}
	if m := findMetric(t, reg, "fitadmin_http_status_total", map[string]string{"status_code": "403"}); m.GetCounter().GetValue() != 1 {
		t.Errorf("http_status_total{status_code=403} = %v, want 1", m.GetCounter().GetValue())
	}
}

// TestRecordRequestLatency_ObservesHistogram はレイテンシのヒストグラムに値が記録されることを検証する。
func TestRecordRequestLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(100 * time.Millisecond)
	c.RecordRequestLatency(2 * time.Second)

	m := findMetric(t, reg, "fitadmin_request_latency_seconds", nil)
	if m == nil {
		t.Fatal("metric not found")
	}
	h := m.GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
	}
	// 合計は0.1 + 2.0 = 2.1秒
	if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
		t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthorization(OutcomeAllowed)
	c.RecordCompensation("create_user", CompensationSucceeded)
	c.RecordConsistencyWarning("unsynced_email")
	c.RecordHTTPStatus(200)
	c.RecordRequestLatency(500 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, metric := range []string{
		"fitadmin_authorization_total",
		"fitadmin_compensation_total",
		"fitadmin_consistency_warning_total",
		"fitadmin_http_status_total",
		"fitadmin_request_latency_seconds",
	} {
		if !strings.Contains(string(body), metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordAuthorization(OutcomeAllowed)
	c2.RecordAuthorization(OutcomeAllowed)
	c2.RecordAuthorization(OutcomeAllowed)

	labels := map[string]string{"outcome": OutcomeAllowed}
	if v := findMetric(t, reg1, "fitadmin_authorization_total", labels).GetCounter().GetValue(); v != 1 {
		t.Errorf("reg1 authorization = %v, want 1", v)
	}
	if v := findMetric(t, reg2, "fitadmin_authorization_total", labels).GetCounter().GetValue(); v != 2 {
		t.Errorf("reg2 authorization = %v, want 2", v)
	}
}

// TestNoop_DoesNotPanic はNoopがすべての記録を受け付けることを検証する。
func TestNoop_DoesNotPanic(t *testing.T) {
	var c MetricsCollector = Noop{}
	c.RecordAuthorization(OutcomeAllowed)
	c.RecordCompensation("create_user", CompensationFailed)
	c.RecordConsistencyWarning("stale_sessions")
	c.RecordHTTPStatus(500)
	c.RecordRequestLatency(time.Second)
}
