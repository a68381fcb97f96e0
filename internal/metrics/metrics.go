// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ログイン結果のラベル値
const (
	LoginSuccess       = "success"
	LoginNotAuthorized = "not_authorized"
	LoginFailed        = "failed"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証ハンドラーやセッションクリーンアップから利用する。
type MetricsCollector interface {
	RecordLogin(provider string, result string)
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
// database.QueryObserverも実装する。
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	dbQueries       *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec
	logins          *prometheus.CounterVec
	sessionsCleaned prometheus.Counter
	panics          prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nestadmin_http_requests_total",
			Help: "ルートとステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nestadmin_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		dbQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nestadmin_db_queries_total",
			Help: "論理データベースと結果別のクエリ数",
		}, []string{"database", "result"}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nestadmin_db_query_duration_seconds",
			Help:    "クエリのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"database"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nestadmin_auth_logins_total",
			Help: "プロバイダーと結果別の管理者ログイン数",
		}, []string{"provider", "result"}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nestadmin_sessions_cleaned_total",
			Help: "削除された期限切れセッションの合計数",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nestadmin_http_panics_total",
			Help: "ハンドラー内で回収したpanicの数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.dbQueries,
		c.dbQueryDuration,
		c.logins,
		c.sessionsCleaned,
		c.panics,
	)

	return c
}

// ObserveQuery はクエリの実行結果とレイテンシを記録する。
func (c *Collector) ObserveQuery(database string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.dbQueries.WithLabelValues(database, result).Inc()
	c.dbQueryDuration.WithLabelValues(database).Observe(duration.Seconds())
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(provider string, result string) {
	c.logins.WithLabelValues(provider, result).Inc()
}

// RecordSessionsCleaned は削除した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	if count > 0 {
		c.sessionsCleaned.Add(float64(count))
	}
}

// RecordPanic はリカバリーミドルウェアが回収したpanicを記録する。
func (c *Collector) RecordPanic() {
	c.panics.Inc()
}

// Middleware はHTTPリクエスト数と処理時間を記録するミドルウェアを返す。
// ラベルにはURLではなくchiのルートパターンを使い、カーディナリティを抑える。
func (c *Collector) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.statusCode)).Inc()
			c.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.written = true
	return sr.ResponseWriter.Write(b)
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
