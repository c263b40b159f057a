// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordExperimentCreated()
	RecordAttributeReconciled(kind string)
	RecordTokensCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus           *prometheus.CounterVec
	requestLatency       prometheus.Histogram
	experimentsCreated   prometheus.Counter
	attributesReconciled *prometheus.CounterVec
	tokensCleaned        prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labnote_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "labnote_request_latency_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		experimentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labnote_experiments_created_total",
			Help: "作成された実験の合計数",
		}),
		attributesReconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labnote_attributes_reconciled_total",
			Help: "get-or-createで解決された属性の種別ごとの合計数",
		}, []string{"kind"}),
		tokensCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labnote_tokens_cleaned_total",
			Help: "クリーンアップで削除された期限切れトークンの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.experimentsCreated,
		c.attributesReconciled,
		c.tokensCleaned,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordExperimentCreated は実験の作成を記録する。
func (c *Collector) RecordExperimentCreated() {
	c.experimentsCreated.Inc()
}

// RecordAttributeReconciled は属性のget-or-create解決を種別ごとに記録する。
func (c *Collector) RecordAttributeReconciled(kind string) {
	c.attributesReconciled.WithLabelValues(kind).Inc()
}

// RecordTokensCleaned はクリーンアップで削除されたトークン数を記録する。
func (c *Collector) RecordTokensCleaned(count int64) {
	c.tokensCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
