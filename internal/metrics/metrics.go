// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はリフレッシュパイプラインのPrometheusメトリクスを収集する。
// refresh.MetricsRecorderとalert.MetricsRecorderを実装する。
type Collector struct {
	fetchSuccess     prometheus.Counter
	fetchFail        prometheus.Counter
	fetchLatency     prometheus.Histogram
	snapshotEvents   prometheus.Gauge
	alertsEmitted    prometheus.Counter
	refreshCoalesced prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quakewatch_fetch_success_total",
			Help: "フィードフェッチ成功の合計数",
		}),
		fetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quakewatch_fetch_fail_total",
			Help: "フィードフェッチ失敗の合計数",
		}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quakewatch_fetch_latency_seconds",
			Help:    "フィードフェッチのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		snapshotEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quakewatch_snapshot_events",
			Help: "直近の成功フェッチで得たイベント数",
		}),
		alertsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quakewatch_alerts_emitted_total",
			Help: "発火した重大イベントアラートの合計数",
		}),
		refreshCoalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quakewatch_refresh_coalesced_total",
			Help: "実行中フェッチに合流されたリフレッシュ要求の合計数",
		}),
	}

	reg.MustRegister(
		c.fetchSuccess,
		c.fetchFail,
		c.fetchLatency,
		c.snapshotEvents,
		c.alertsEmitted,
		c.refreshCoalesced,
	)

	return c
}

// RecordFetchSuccess はフェッチ成功を記録する。
func (c *Collector) RecordFetchSuccess() {
	c.fetchSuccess.Inc()
}

// RecordFetchFailure はフェッチ失敗を記録する。
func (c *Collector) RecordFetchFailure() {
	c.fetchFail.Inc()
}

// RecordFetchLatency はフェッチのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordSnapshotSize はスナップショットのイベント数を記録する。
func (c *Collector) RecordSnapshotSize(count int) {
	c.snapshotEvents.Set(float64(count))
}

// RecordAlertEmitted はアラート発火を記録する。
func (c *Collector) RecordAlertEmitted() {
	c.alertsEmitted.Inc()
}

// RecordRefreshCoalesced はリフレッシュ要求の合流を記録する。
func (c *Collector) RecordRefreshCoalesced() {
	c.refreshCoalesced.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
