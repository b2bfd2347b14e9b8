// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はリレーサービスのPrometheusメトリクスを収集する。
type Collector struct {
	messagesSent    prometheus.Counter
	messageBytes    prometheus.Histogram
	messagesDeleted prometheus.Counter
	accountsCreated prometheus.Counter
	sessionsIssued  prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_messages_sent_total",
			Help: "保存されたメッセージの合計数",
		}),
		messageBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_message_bytes",
			Help:    "送信メッセージ本文のサイズ（バイト）",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		}),
		messagesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_messages_deleted_total",
			Help: "ソフト削除されたメッセージの合計数",
		}),
		accountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_accounts_created_total",
			Help: "作成されたアカウントの合計数",
		}),
		sessionsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_sessions_issued_total",
			Help: "発行されたセッションの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_request_latency_seconds",
			Help:    "リクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.messagesSent,
		c.messageBytes,
		c.messagesDeleted,
		c.accountsCreated,
		c.sessionsIssued,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordMessageSent はメッセージ送信とそのサイズを記録する。
func (c *Collector) RecordMessageSent(sizeBytes int) {
	c.messagesSent.Inc()
	c.messageBytes.Observe(float64(sizeBytes))
}

// RecordMessagesDeleted はソフト削除されたメッセージ数を記録する。
func (c *Collector) RecordMessagesDeleted(count int) {
	c.messagesDeleted.Add(float64(count))
}

// RecordAccountCreated はアカウント作成を記録する。
func (c *Collector) RecordAccountCreated() {
	c.accountsCreated.Inc()
}

// RecordSessionIssued はセッション発行を記録する。
func (c *Collector) RecordSessionIssued() {
	c.sessionsIssued.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
