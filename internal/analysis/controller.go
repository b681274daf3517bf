// Package analysis は手紙解析のワークフローを提供する。
// ファイル選択から提出、結果・エラー表示までの状態機械と、
// セッション状態に基づく解析ルートの選択を含む。
package analysis

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/letterlens/internal/letterapi"
	"github.com/hitoshi/letterlens/internal/metrics"
	"github.com/hitoshi/letterlens/internal/model"
)

// State はワークフローの状態を表す。
type State string

const (
	// StateIdle は初期状態。ファイル未選択。
	StateIdle State = "idle"
	// StateFileSelected はファイル選択済みで提出可能な状態。
	StateFileSelected State = "file_selected"
	// StateSubmitting は提出が実行中の状態。同時に1件のみ。
	StateSubmitting State = "submitting"
	// StateSucceeded は解析結果を保持する成功状態。
	StateSucceeded State = "succeeded"
	// StateFailed はエラーメッセージを保持する失敗状態。
	StateFailed State = "failed"
)

// SessionReader はコントローラが参照するセッション状態の読み取り専用ビュー。
// コントローラはセッション状態を変更してはならない。
type SessionReader interface {
	IsAuthenticated() bool
	AuthHeader() http.Header
}

// AnalyzeAPI は解析エンドポイント呼び出しのインターフェース。
type AnalyzeAPI interface {
	// AnalyzeFile は匿名ルートで解析する。
	AnalyzeFile(ctx context.Context, doc *model.Document, language string) (*model.AnalysisResult, error)
	// AnalyzeFileWithUserKeys は認証済みルートで解析する。
	AnalyzeFileWithUserKeys(ctx context.Context, doc *model.Document, language string, authHeader http.Header) (*model.AnalysisResult, error)
}

// Config はコントローラの設定。
type Config struct {
	// SubmitTimeout は1回の提出の最大待ち時間。0の場合はタイムアウトしない。
	SubmitTimeout time.Duration
	// Language は解析結果の出力言語コード。
	Language string
}

// Controller は1つのドキュメントを選択・提出・結果表示まで運ぶ状態機械。
// 提出は常に高々1件しか実行されない。
type Controller struct {
	api     AnalyzeAPI
	session SessionReader
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	config  Config

	mu       sync.Mutex
	state    State
	doc      *model.Document
	language string
	result   *model.AnalysisResult
	errMsg   string
}

// NewController はControllerの新しいインスタンスを生成する。
// 設定の言語が未対応の場合は既定言語を使用する。
func NewController(api AnalyzeAPI, session SessionReader, collector metrics.MetricsCollector, logger *slog.Logger, config Config) *Controller {
	if !model.IsSupportedLanguage(config.Language) {
		config.Language = model.DefaultLanguage
	}
	return &Controller{
		api:      api,
		session:  session,
		metrics:  collector,
		logger:   logger,
		config:   config,
		state:    StateIdle,
		language: config.Language,
	}
}

// SelectFile はファイルを選択する。提出中以外の任意の状態から有効で、
// 以前の結果とエラーは無条件に破棄される。
func (c *Controller) SelectFile(doc *model.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSubmitting {
		return model.NewInvalidStateError("select_file", string(c.state))
	}

	c.doc = doc
	c.result = nil
	c.errMsg = ""
	c.state = StateFileSelected

	c.logger.Info("file selected",
		slog.String("file_name", doc.Name),
		slog.Int64("file_size", doc.Size),
	)
	return nil
}

// SetLanguage は解析結果の出力言語を設定する。提出中は変更できない。
func (c *Controller) SetLanguage(code string) error {
	if !model.IsSupportedLanguage(code) {
		return model.NewInvalidLanguageError(code)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSubmitting {
		return model.NewInvalidStateError("set_language", string(c.state))
	}
	c.language = code
	return nil
}

// Submit は選択済みファイルを解析ルートに提出し、完了後の状態を返す。
// ファイル未選択の場合はバックエンドに接触せずFailedに遷移する。
// 提出中の再呼び出しは何も行わない（重複リクエスト防止）。
// ルートはセッション状態で決まる: 認証済みならユーザーキー用ルートに
// 認可ヘッダーを付与し、未認証なら匿名ルートを使用する。
func (c *Controller) Submit(ctx context.Context) State {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		c.logger.Debug("submit ignored: already submitting")
		return StateSubmitting
	}

	if c.doc == nil {
		c.result = nil
		c.errMsg = model.MsgNoFileSelected
		c.state = StateFailed
		c.mu.Unlock()
		c.metrics.RecordAnalyzeFailure(metrics.ReasonNoFile)
		c.logger.Warn("submit without selected file")
		return StateFailed
	}

	// 提出に使う値は遷移と同一のステップ内でスナップショットする
	doc := c.doc
	language := c.language
	authenticated := c.session.IsAuthenticated()
	authHeader := c.session.AuthHeader()
	submissionID := uuid.New().String()

	c.result = nil
	c.errMsg = ""
	c.state = StateSubmitting
	c.mu.Unlock()

	c.logger.Info("submitting document",
		slog.String("submission_id", submissionID),
		slog.String("file_name", doc.Name),
		slog.String("language", language),
		slog.Bool("authenticated", authenticated),
	)

	if c.config.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.SubmitTimeout)
		defer cancel()
	}

	start := time.Now()
	var result *model.AnalysisResult
	var err error
	if authenticated {
		result, err = c.api.AnalyzeFileWithUserKeys(ctx, doc, language, authHeader)
	} else {
		result, err = c.api.AnalyzeFile(ctx, doc, language)
	}
	elapsed := time.Since(start)
	c.metrics.RecordAnalyzeLatency(elapsed)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.errMsg = letterapi.UserMessage(err, model.MsgUploadFailed)
		c.state = StateFailed
		reason := metrics.ReasonTransport
		if c.errMsg != model.MsgUploadFailed {
			reason = metrics.ReasonBackend
		}
		c.metrics.RecordAnalyzeFailure(reason)
		c.logger.Warn("submission failed",
			slog.String("submission_id", submissionID),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", elapsed),
		)
		return StateFailed
	}

	c.result = result
	c.state = StateSucceeded
	c.metrics.RecordAnalyzeSuccess()
	c.logger.Info("submission succeeded",
		slog.String("submission_id", submissionID),
		slog.String("llm_provider", result.LLMProvider),
		slog.Duration("elapsed", elapsed),
	)
	return StateSucceeded
}

// Reset はワークフローを初期状態に戻す。成功または失敗状態からのみ有効で、
// 選択済みファイル・結果・エラーをすべて破棄する。
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateSucceeded && c.state != StateFailed {
		return model.NewInvalidStateError("reset", string(c.state))
	}

	c.doc = nil
	c.result = nil
	c.errMsg = ""
	c.state = StateIdle
	return nil
}

// State は現在の状態を返す。
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result は解析結果を返す。成功状態以外ではnilを返す。
func (c *Controller) Result() *model.AnalysisResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// ErrorMessage は失敗状態のユーザー向けメッセージを返す。失敗状態以外では空文字列。
func (c *Controller) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Language は現在の解析言語コードを返す。
func (c *Controller) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language
}
