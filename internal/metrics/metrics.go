// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層から利用する。
type MetricsCollector interface {
	RecordEventCreated()
	RecordResolve(status string)
	RecordSubmission()
	RecordSubmissionDenied()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	eventsCreated    prometheus.Counter
	resolves         *prometheus.CounterVec
	submissions      prometheus.Counter
	submissionDenied prometheus.Counter
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		eventsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plan2meet_events_created_total",
			Help: "作成されたイベントの合計数",
		}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plan2meet_participant_resolves_total",
			Help: "参加者照合の結果別合計数",
		}, []string{"status"}),
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plan2meet_availability_submissions_total",
			Help: "保存された回答送信の合計数",
		}),
		submissionDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plan2meet_availability_denied_total",
			Help: "照合失敗で拒否された回答送信の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plan2meet_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.eventsCreated,
		c.resolves,
		c.submissions,
		c.submissionDenied,
		c.httpStatus,
	)

	return c
}

// RecordEventCreated はイベント作成を記録する。
func (c *Collector) RecordEventCreated() {
	c.eventsCreated.Inc()
}

// RecordResolve は参加者照合の結果を記録する。
// statusにはnew、authenticated、deniedのいずれかを渡す。
func (c *Collector) RecordResolve(status string) {
	c.resolves.WithLabelValues(status).Inc()
}

// RecordSubmission は回答送信の成功を記録する。
func (c *Collector) RecordSubmission() {
	c.submissions.Inc()
}

// RecordSubmissionDenied は照合失敗による回答送信の拒否を記録する。
func (c *Collector) RecordSubmissionDenied() {
	c.submissionDenied.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
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

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
