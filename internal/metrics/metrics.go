// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやノーティファイアから利用する。
type MetricsCollector interface {
	RecordReminderSent()
	RecordDigestSent()
	RecordDeliveryFailure()
	RecordAuthFailure()
	RecordCalendarFetchFailure()
	RecordSweepDuration(duration time.Duration)
	RecordRecordsPruned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	remindersSent     prometheus.Counter
	digestsSent       prometheus.Counter
	deliveryFail      prometheus.Counter
	authFail          prometheus.Counter
	calendarFetchFail prometheus.Counter
	sweepDuration     prometheus.Histogram
	recordsPruned     prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calremind_reminders_sent_total",
			Help: "配信に成功したリマインダー通知の合計数",
		}),
		digestsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calremind_digests_sent_total",
			Help: "配信に成功したデイリーダイジェストの合計数",
		}),
		deliveryFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calremind_delivery_fail_total",
			Help: "Webhook配信失敗の合計数",
		}),
		authFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calremind_auth_fail_total",
			Help: "カレンダー認証失敗（トークン失効等）の合計数",
		}),
		calendarFetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calremind_calendar_fetch_fail_total",
			Help: "個別カレンダーのイベント取得失敗の合計数",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "calremind_sweep_duration_seconds",
			Help:    "リマインダースイープ1回あたりの所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		recordsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calremind_records_pruned_total",
			Help: "削除された通知済みレコードの合計数",
		}),
	}

	reg.MustRegister(
		c.remindersSent,
		c.digestsSent,
		c.deliveryFail,
		c.authFail,
		c.calendarFetchFail,
		c.sweepDuration,
		c.recordsPruned,
	)

	return c
}

// RecordReminderSent はリマインダー配信成功を記録する。
func (c *Collector) RecordReminderSent() {
	c.remindersSent.Inc()
}

// RecordDigestSent はダイジェスト配信成功を記録する。
func (c *Collector) RecordDigestSent() {
	c.digestsSent.Inc()
}

// RecordDeliveryFailure はWebhook配信失敗を記録する。
func (c *Collector) RecordDeliveryFailure() {
	c.deliveryFail.Inc()
}

// RecordAuthFailure はカレンダー認証失敗を記録する。
func (c *Collector) RecordAuthFailure() {
	c.authFail.Inc()
}

// RecordCalendarFetchFailure は個別カレンダーの取得失敗を記録する。
func (c *Collector) RecordCalendarFetchFailure() {
	c.calendarFetchFail.Inc()
}

// RecordSweepDuration はスイープの所要時間を記録する。
func (c *Collector) RecordSweepDuration(duration time.Duration) {
	c.sweepDuration.Observe(duration.Seconds())
}

// RecordRecordsPruned は削除された通知済みレコード数を記録する。
func (c *Collector) RecordRecordsPruned(count int64) {
	c.recordsPruned.Add(float64(count))
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
