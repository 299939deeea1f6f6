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
// サービス層やワーカーから利用する。
type MetricsCollector interface {
	RecordLogin()
	RecordLoginFailure()
	RecordSessionRefresh()
	RecordSessionRefreshFailure()
	RecordBookmarkCreated()
	RecordBookmarkDeleted()
	RecordHTTPStatus(statusCode int)
	RecordListLatency(duration time.Duration)
	RecordSessionsPurged(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins          prometheus.Counter
	loginFail       prometheus.Counter
	sessionRefresh  prometheus.Counter
	refreshFail     prometheus.Counter
	bookmarkCreated prometheus.Counter
	bookmarkDeleted prometheus.Counter
	httpStatus      *prometheus.CounterVec
	listLatency     prometheus.Histogram
	sessionsPurged  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartbookmark_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartbookmark_login_fail_total",
			Help: "ログイン失敗（認可コード交換失敗を含む）の合計数",
		}),
		sessionRefresh: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartbookmark_session_refresh_total",
			Help: "トークン更新成功の合計数",
		}),
		refreshFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartbookmark_session_refresh_fail_total",
			Help: "トークン更新失敗（セッション終了につながる）の合計数",
		}),
		bookmarkCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartbookmark_bookmark_created_total",
			Help: "作成されたブックマークの合計数",
		}),
		bookmarkDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartbookmark_bookmark_deleted_total",
			Help: "削除されたブックマークの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartbookmark_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		listLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "smartbookmark_list_latency_seconds",
			Help:    "ブックマーク一覧取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartbookmark_sessions_purged_total",
			Help: "クリーンアップワーカーが削除した期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.loginFail,
		c.sessionRefresh,
		c.refreshFail,
		c.bookmarkCreated,
		c.bookmarkDeleted,
		c.httpStatus,
		c.listLatency,
		c.sessionsPurged,
	)

	return c
}

// RecordLogin はログイン成功を記録する。
func (c *Collector) RecordLogin() {
	c.logins.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFail.Inc()
}

// RecordSessionRefresh はトークン更新成功を記録する。
func (c *Collector) RecordSessionRefresh() {
	c.sessionRefresh.Inc()
}

// RecordSessionRefreshFailure はトークン更新失敗を記録する。
func (c *Collector) RecordSessionRefreshFailure() {
	c.refreshFail.Inc()
}

// RecordBookmarkCreated はブックマーク作成を記録する。
func (c *Collector) RecordBookmarkCreated() {
	c.bookmarkCreated.Inc()
}

// RecordBookmarkDeleted はブックマーク削除を記録する。
func (c *Collector) RecordBookmarkDeleted() {
	c.bookmarkDeleted.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordListLatency は一覧取得のレイテンシを記録する。
func (c *Collector) RecordListLatency(duration time.Duration) {
	c.listLatency.Observe(duration.Seconds())
}

// RecordSessionsPurged は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int) {
	c.sessionsPurged.Add(float64(count))
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
