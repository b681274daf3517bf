// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// セッションマネージャとワークフローコントローラから利用する。
type MetricsCollector interface {
	RecordAnalyzeSuccess()
	RecordAnalyzeFailure(reason string)
	RecordAnalyzeLatency(duration time.Duration)
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordFileProcessed()
}

// 失敗理由のラベル値
const (
	ReasonNoFile    = "no_file"
	ReasonBackend   = "backend"
	ReasonTransport = "transport"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	analyzeSuccess prometheus.Counter
	analyzeFail    *prometheus.CounterVec
	analyzeLatency prometheus.Histogram
	loginSuccess   prometheus.Counter
	loginFail      prometheus.Counter
	filesProcessed prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		analyzeSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "letterlens_analyze_success_total",
			Help: "手紙解析提出成功の合計数",
		}),
		analyzeFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "letterlens_analyze_fail_total",
			Help: "手紙解析提出失敗の理由別合計数",
		}, []string{"reason"}),
		analyzeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "letterlens_analyze_latency_seconds",
			Help:    "手紙解析提出のレイテンシ（秒）",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "letterlens_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "letterlens_login_fail_total",
			Help: "ログイン失敗の合計数",
		}),
		filesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "letterlens_watch_files_processed_total",
			Help: "監視ディレクトリで処理されたファイルの合計数",
		}),
	}

	reg.MustRegister(
		c.analyzeSuccess,
		c.analyzeFail,
		c.analyzeLatency,
		c.loginSuccess,
		c.loginFail,
		c.filesProcessed,
	)

	return c
}

// RecordAnalyzeSuccess は解析提出成功を記録する。
func (c *Collector) RecordAnalyzeSuccess() {
	c.analyzeSuccess.Inc()
}

// RecordAnalyzeFailure は解析提出失敗を理由付きで記録する。
func (c *Collector) RecordAnalyzeFailure(reason string) {
	c.analyzeFail.WithLabelValues(reason).Inc()
}

// RecordAnalyzeLatency は解析提出のレイテンシを記録する。
func (c *Collector) RecordAnalyzeLatency(duration time.Duration) {
	c.analyzeLatency.Observe(duration.Seconds())
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFail.Inc()
}

// RecordFileProcessed は監視ディレクトリで処理されたファイルを記録する。
func (c *Collector) RecordFileProcessed() {
	c.filesProcessed.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// watchモードでのPrometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
