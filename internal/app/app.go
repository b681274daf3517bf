package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/letterlens/internal/analysis"
	"github.com/hitoshi/letterlens/internal/config"
	"github.com/hitoshi/letterlens/internal/letterapi"
	"github.com/hitoshi/letterlens/internal/logger"
	"github.com/hitoshi/letterlens/internal/metrics"
	"github.com/hitoshi/letterlens/internal/model"
	"github.com/hitoshi/letterlens/internal/session"
	"github.com/hitoshi/letterlens/internal/store"
	"github.com/hitoshi/letterlens/internal/watch"
)

const usage = `letterlens - scanned letter analysis client

Usage:
  letterlens analyze <file>       analyze a single document and print the result
  letterlens login <credential>   sign in with a Google ID token credential
  letterlens logout               discard the stored session
  letterlens set-key <api-key>    save a Gemini API key to the backend
  letterlens profile              show the signed-in user profile
  letterlens status               show LLM provider availability
  letterlens watch                watch a directory and analyze dropped files
  letterlens help                 show this message

Environment:
  BACKEND_BASE_URL (required), HTTP_TIMEOUT, CREDENTIALS_PATH,
  ANALYSIS_LANGUAGE, ANALYZE_TIMEOUT, WATCH_DIR, WATCH_INTERVAL,
  METRICS_PORT, LOG_LEVEL
`

// Init はアプリケーションの初期化を行う。
// .envファイル（存在すれば）と環境変数からConfigを読み込み、
// JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envがあれば読み込む（無ければ環境変数のみを使う）
	_ = godotenv.Load()

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで実行する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, rest := ParseCommand(args)

	// help は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHelp {
		fmt.Fprint(w, usage)
		return nil
	}

	cfg, err := Init(os.Stderr)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting letterlens",
		slog.String("command", string(cmd)),
		slog.String("backend", cfg.BackendBaseURL),
	)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	api := letterapi.NewClient(httpClient, cfg.BackendBaseURL, slog.Default())

	// status はセッションに依存しないため、クレデンシャルストアを開かない
	if cmd == CommandStatus {
		return runStatus(w, api)
	}

	credStore, err := store.OpenBolt(cfg.CredentialsPath)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	defer credStore.Close()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	ctx := context.Background()

	sess := session.NewManager(api, credStore, collector, slog.Default())
	sess.Initialize(ctx)

	ctrl := analysis.NewController(api, sess, collector, slog.Default(), analysis.Config{
		SubmitTimeout: cfg.AnalyzeTimeout,
		Language:      cfg.AnalysisLanguage,
	})

	switch cmd {
	case CommandAnalyze:
		return runAnalyze(ctx, w, ctrl, rest)
	case CommandLogin:
		return runLogin(ctx, w, sess, rest)
	case CommandLogout:
		return runLogout(w, sess)
	case CommandSetKey:
		return runSetKey(ctx, w, api, sess, rest)
	case CommandProfile:
		return runProfile(w, sess)
	case CommandWatch:
		return runWatch(ctx, cfg, ctrl, api, collector, reg)
	default:
		fmt.Fprint(w, usage)
		return nil
	}
}

// runAnalyze は単一ファイルを解析し、結果JSONをwriterに出力する。
// ログイン中はユーザーAPIキーを使う解析エンドポイントが選択される。
func runAnalyze(ctx context.Context, w io.Writer, ctrl *analysis.Controller, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("analyze: file path is required")
	}

	doc, err := watch.ReadDocument(args[0])
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	if err := ctrl.SelectFile(doc); err != nil {
		return err
	}

	if state := ctrl.Submit(ctx); state != analysis.StateSucceeded {
		return fmt.Errorf("analysis failed: %s", ctrl.ErrorMessage())
	}

	data, err := json.MarshalIndent(ctrl.Result(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// runLogin はGoogleクレデンシャルを検証してセッションを確立する。
func runLogin(ctx context.Context, w io.Writer, sess *session.Manager, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("login: credential is required")
	}

	if err := sess.Login(ctx, args[0]); err != nil {
		return err
	}

	fmt.Fprintf(w, "logged in as %s\n", sess.User().Email)
	return nil
}

// runLogout はセッションと保存済みトークンを破棄する。
func runLogout(w io.Writer, sess *session.Manager) error {
	sess.Logout()
	fmt.Fprintln(w, "logged out")
	return nil
}

// runSetKey はGemini APIキーをバックエンドに保存する。
// 保存成功後はローカルのユーザープロフィールにキー保持フラグを反映する。
func runSetKey(ctx context.Context, w io.Writer, api *letterapi.Client, sess *session.Manager, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("set-key: api key is required")
	}
	if !sess.IsAuthenticated() {
		return model.NewNotLoggedInError()
	}

	if err := api.SaveGeminiAPIKey(ctx, sess.AuthHeader(), args[0]); err != nil {
		return fmt.Errorf("failed to save api key: %s", letterapi.UserMessage(err, "could not save the API key"))
	}

	updated := *sess.User()
	updated.HasProviderAPIKey = true
	sess.UpdateUser(&updated)

	fmt.Fprintln(w, "api key saved")
	return nil
}

// runProfile はログイン中のユーザープロフィールをJSONで出力する。
func runProfile(w io.Writer, sess *session.Manager) error {
	if !sess.IsAuthenticated() {
		return model.NewNotLoggedInError()
	}

	data, err := json.MarshalIndent(sess.User(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// runStatus はLLMプロバイダーの稼働状況を取得して出力する。
func runStatus(w io.Writer, api *letterapi.Client) error {
	status, err := api.GetLLMStatus(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get provider status: %s", letterapi.UserMessage(err, "provider status is unavailable"))
	}

	fmt.Fprintf(w, "status: %s (%d/%d providers active)\n",
		status.Status, status.ActiveProviders, status.TotalProviders)
	return nil
}

// runWatch はディレクトリ監視モードで起動する。
// メトリクスサーバーを起動し、投入されたファイルを順次解析する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runWatch(ctx context.Context, cfg *config.Config, ctrl *analysis.Controller, api *letterapi.Client, collector *metrics.Collector, reg *prometheus.Registry) error {
	// 1. メトリクスサーバーの起動
	metricsServer := &http.Server{
		Addr:         ":" + cfg.MetricsPort,
		Handler:      metrics.SetupMetricsRoute(reg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("metrics server starting",
			slog.String("addr", metricsServer.Addr),
		)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	// 2. プロバイダー状況の取得（起動時の情報提供のみ。失敗しても監視は続行する）
	go func() {
		status, err := api.GetLLMStatus(ctx)
		if err != nil {
			slog.Warn("provider status check failed", slog.String("error", err.Error()))
			return
		}
		slog.Info("provider status",
			slog.String("status", status.Status),
			slog.Int("active_providers", status.ActiveProviders),
			slog.Int("total_providers", status.TotalProviders),
		)
	}()

	// 3. ウォッチャーの起動
	watcher := watch.NewWatcher(cfg.WatchDir, ctrl, collector, slog.Default())

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		watcher.Start(watchCtx, cfg.WatchInterval)
		close(done)
	}()

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	slog.Info("shutting down watcher...")

	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown failed: %w", err)
	}

	slog.Info("watcher stopped gracefully")
	return nil
}
