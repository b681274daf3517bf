package config

import (
	"fmt"
	"os"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend
	BackendBaseURL string
	HTTPTimeout    time.Duration

	// Credential storage
	CredentialsPath string

	// Analysis
	AnalysisLanguage string
	AnalyzeTimeout   time.Duration

	// Watch mode
	WatchDir      string
	WatchInterval time.Duration

	// Metrics
	MetricsPort string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.BackendBaseURL = os.Getenv("BACKEND_BASE_URL")
	if cfg.BackendBaseURL == "" {
		missing = append(missing, "BACKEND_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", 30*time.Second)
	cfg.CredentialsPath = getEnvString("CREDENTIALS_PATH", "letterlens.db")
	cfg.AnalysisLanguage = getEnvString("ANALYSIS_LANGUAGE", "en")
	// ANALYZE_TIMEOUT=0 でタイムアウト無効（提出が完了するまで待ち続ける）
	cfg.AnalyzeTimeout = getEnvDuration("ANALYZE_TIMEOUT", 120*time.Second)
	cfg.WatchDir = getEnvString("WATCH_DIR", "inbox")
	cfg.WatchInterval = getEnvDuration("WATCH_INTERVAL", 2*time.Second)
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9090")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	// "0" はタイムアウト無効の明示指定として受け付ける
	if v == "0" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
