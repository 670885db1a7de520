// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認可判定の結果ラベル
const (
	OutcomeAllowed         = "allowed"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeForbidden       = "forbidden"
	OutcomeCheckFailed     = "check_failed"
)

// 補償処理の結果ラベル
const (
	CompensationSucceeded = "succeeded"
	CompensationFailed    = "failed"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアとサービス層から利用する。
type MetricsCollector interface {
	RecordAuthorization(outcome string)
	RecordCompensation(operation, result string)
	RecordConsistencyWarning(kind string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authorization  *prometheus.CounterVec
	compensation   *prometheus.CounterVec
	consistencyWrn *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authorization: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitadmin_authorization_total",
			Help: "ロールゲートの判定結果別の件数",
		}, []string{"outcome"}),
		compensation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitadmin_compensation_total",
			Help: "補償処理（IdPアカウント削除）の実行件数",
		}, []string{"operation", "result"}),
		consistencyWrn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitadmin_consistency_warning_total",
			Help: "IdPとプロフィールの不整合警告の件数",
		}, []string{"kind"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitadmin_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fitadmin_request_latency_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.authorization,
		c.compensation,
		c.consistencyWrn,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordAuthorization は認可判定の結果を記録する。
func (c *Collector) RecordAuthorization(outcome string) {
	c.authorization.WithLabelValues(outcome).Inc()
}

// RecordCompensation は補償処理の結果を記録する。
func (c *Collector) RecordCompensation(operation, result string) {
	c.compensation.WithLabelValues(operation, result).Inc()
}

// RecordConsistencyWarning は不整合警告を記録する。
func (c *Collector) RecordConsistencyWarning(kind string) {
	c.consistencyWrn.WithLabelValues(kind).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Noop は何も記録しないMetricsCollector。
type Noop struct{}

func (Noop) RecordAuthorization(string)         {}
func (Noop) RecordCompensation(string, string)  {}
func (Noop) RecordConsistencyWarning(string)    {}
func (Noop) RecordHTTPStatus(int)               {}
func (Noop) RecordRequestLatency(time.Duration) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Noop{}
)
