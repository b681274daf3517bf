// Package watch はドロップディレクトリの監視処理を提供する。
// 新しく置かれたファイルを解析ワークフローに1件ずつ通し、
// 結果を元ファイルの隣にJSONで書き出す。
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hitoshi/letterlens/internal/analysis"
	"github.com/hitoshi/letterlens/internal/metrics"
	"github.com/hitoshi/letterlens/internal/model"
)

// resultSuffix は解析結果ファイルの拡張子。この拡張子のファイルは監視対象外。
const resultSuffix = ".analysis.json"

// Workflow はウォッチャーが駆動する解析ワークフローのインターフェース。
type Workflow interface {
	SelectFile(doc *model.Document) error
	Submit(ctx context.Context) analysis.State
	Reset() error
	Result() *model.AnalysisResult
	ErrorMessage() string
}

// Watcher はディレクトリをポーリングし、新規ファイルを解析ワークフローに通す。
// ファイルは1件ずつ順番に処理され、同じファイルが二度処理されることはない。
type Watcher struct {
	dir      string
	workflow Workflow
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
	seen     map[string]bool
}

// NewWatcher はWatcherの新しいインスタンスを生成する。
func NewWatcher(dir string, workflow Workflow, collector metrics.MetricsCollector, logger *slog.Logger) *Watcher {
	return &Watcher{
		dir:      dir,
		workflow: workflow,
		metrics:  collector,
		logger:   logger,
		seen:     make(map[string]bool),
	}
}

// Start は指定間隔のティッカーで監視を開始する。
// コンテキストがキャンセルされるまで実行を継続する。
func (w *Watcher) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("watch mode started",
		slog.String("dir", w.dir),
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := w.RunOnce(ctx); err != nil {
		w.logger.Error("watch cycle failed",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch mode stopped")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("watch cycle failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はディレクトリを1回スキャンし、未処理のファイルを順番に処理する。
func (w *Watcher) RunOnce(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to read watch dir %s: %w", w.dir, err)
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil
		}
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, resultSuffix) {
			continue
		}
		if w.seen[name] {
			continue
		}
		w.seen[name] = true

		w.process(ctx, name)
	}

	return nil
}

// process は1ファイルをワークフローに通し、結果または失敗をログに記録する。
// 成功時は解析結果を元ファイルの隣に書き出す。
func (w *Watcher) process(ctx context.Context, name string) {
	path := filepath.Join(w.dir, name)

	doc, err := ReadDocument(path)
	if err != nil {
		w.logger.Error("failed to read dropped file",
			slog.String("file", name),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := w.workflow.SelectFile(doc); err != nil {
		w.logger.Error("failed to select file",
			slog.String("file", name),
			slog.String("error", err.Error()),
		)
		return
	}

	state := w.workflow.Submit(ctx)
	w.metrics.RecordFileProcessed()

	switch state {
	case analysis.StateSucceeded:
		if err := w.writeResult(path, w.workflow.Result()); err != nil {
			w.logger.Error("failed to write analysis result",
				slog.String("file", name),
				slog.String("error", err.Error()),
			)
		} else {
			w.logger.Info("file analyzed",
				slog.String("file", name),
				slog.String("result", path+resultSuffix),
			)
		}
	case analysis.StateFailed:
		w.logger.Warn("file analysis failed",
			slog.String("file", name),
			slog.String("error", w.workflow.ErrorMessage()),
		)
	}

	if err := w.workflow.Reset(); err != nil {
		w.logger.Warn("failed to reset workflow",
			slog.String("error", err.Error()),
		)
	}
}

// writeResult は解析結果をインデント付きJSONで書き出す。
func (w *Watcher) writeResult(path string, result *model.AnalysisResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := os.WriteFile(path+resultSuffix, data, 0644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	return nil
}

// ReadDocument はローカルファイルを読み込みDocumentを構築する。
// MIMEタイプは拡張子から推定し、不明な場合はapplication/octet-streamとする。
func ReadDocument(path string) (*model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return &model.Document{
		Name: filepath.Base(path),
		MIME: mimeType,
		Size: int64(len(data)),
		Data: data,
	}, nil
}
