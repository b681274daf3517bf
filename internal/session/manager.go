// Package session は認証状態のライフサイクル管理を提供する。
// ベアラークレデンシャルの永続化・復元と、他コンポーネントへの
// 認可ヘッダーの提供を含む。プロセス内にインスタンスは1つで、
// 書き込みはManager自身のみが行う。
package session

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/hitoshi/letterlens/internal/letterapi"
	"github.com/hitoshi/letterlens/internal/metrics"
	"github.com/hitoshi/letterlens/internal/model"
	"github.com/hitoshi/letterlens/internal/store"
)

// AuthAPI はセッション管理が必要とするバックエンド呼び出しのインターフェース。
type AuthAPI interface {
	// GetProfile はベアラートークンでユーザープロフィールを取得する。
	GetProfile(ctx context.Context, token string) (*model.User, error)
	// VerifyGoogleCredential は外部IdPのクレデンシャルをバックエンド発行の
	// トークンとユーザープロフィールに交換する。
	VerifyGoogleCredential(ctx context.Context, credential string) (string, *model.User, error)
}

// Manager は認証状態を保持し、クレデンシャルの永続化と復元を行う。
// 不変条件: tokenとuserは必ず揃って存在するか、揃って不在であるか。
type Manager struct {
	api     AuthAPI
	store   store.CredentialStore
	metrics metrics.MetricsCollector
	logger  *slog.Logger

	mu      sync.RWMutex
	token   string
	user    *model.User
	loading bool
}

// NewManager はManagerの新しいインスタンスを生成する。
// loadingはInitializeが完了するまでtrueを維持する。
func NewManager(api AuthAPI, credStore store.CredentialStore, collector metrics.MetricsCollector, logger *slog.Logger) *Manager {
	return &Manager{
		api:     api,
		store:   credStore,
		metrics: collector,
		logger:  logger,
		loading: true,
	}
}

// Initialize は起動時に保存済みクレデンシャルの検証を行う。
// 有効ならセッションを復元し、無効（失効・ネットワーク障害を含む）なら
// メモリと永続ストレージの両方からクレデンシャルを破棄する。
// 検証失敗はログに記録するのみで呼び出し元には伝播しない。
// loadingは結果に関わらずただ1回falseに遷移する。2回目以降の呼び出しは何もしない。
func (m *Manager) Initialize(ctx context.Context) {
	m.mu.Lock()
	if !m.loading {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}()

	stored, err := m.store.Load()
	if err != nil {
		m.logger.Warn("failed to load stored credential",
			slog.String("error", err.Error()),
		)
		return
	}
	if stored == "" {
		m.logger.Info("no stored credential, starting unauthenticated")
		return
	}

	user, err := m.api.GetProfile(ctx, stored)
	if err != nil {
		// 失効・無効・ネットワーク障害はすべて未認証状態への降格として扱う
		m.logger.Info("stored credential rejected, clearing session",
			slog.String("error", err.Error()),
		)
		if delErr := m.store.Delete(); delErr != nil {
			m.logger.Warn("failed to delete invalid credential",
				slog.String("error", delErr.Error()),
			)
		}
		m.mu.Lock()
		m.token = ""
		m.user = nil
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	m.token = stored
	m.user = user
	m.mu.Unlock()

	m.logger.Info("session restored",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
}

// Login は外部IdPのクレデンシャルをバックエンド発行のトークンに交換し、
// メモリと永続ストレージの両方に保存する。
// 失敗時は既存のセッション状態を変更せず、バックエンドのdetailメッセージ
// （なければ汎用メッセージ）を持つエラーを返す。
func (m *Manager) Login(ctx context.Context, credential string) error {
	token, user, err := m.api.VerifyGoogleCredential(ctx, credential)
	if err != nil {
		m.metrics.RecordLoginFailure()
		m.logger.Warn("login failed",
			slog.String("error", err.Error()),
		)
		return model.NewLoginFailedError(letterapi.UserMessage(err, ""))
	}

	if err := m.store.Save(token); err != nil {
		// 保存失敗でもログイン自体は成立させる。次回起動時に再ログインとなるのみ。
		m.logger.Warn("failed to persist credential",
			slog.String("error", err.Error()),
		)
	}

	m.mu.Lock()
	m.token = token
	m.user = user
	m.mu.Unlock()

	m.metrics.RecordLoginSuccess()
	m.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return nil
}

// Logout はセッションを同期的に破棄し、永続クレデンシャルを削除する。
// ネットワーク呼び出しは行わず、常に成功する。
func (m *Manager) Logout() {
	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.mu.Unlock()

	if err := m.store.Delete(); err != nil {
		m.logger.Warn("failed to delete persisted credential",
			slog.String("error", err.Error()),
		)
	}

	m.logger.Info("user logged out")
}

// UpdateUser は副作用のある操作（APIキー保存等）の完了後に
// メモリ上のユーザーをまるごと差し替える。永続ストレージには触れない。
// 未認証状態での呼び出しは無視する（不変条件を守るため）。
func (m *Manager) UpdateUser(user *model.User) {
	if user == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return
	}
	m.user = user
}

// AuthHeader はセッションの認可ヘッダーを返す。未認証の場合は空のヘッダーを返す。
// トークンは呼び出しのたびに読み直す（キャッシュしない）。
func (m *Manager) AuthHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()

	header := http.Header{}
	if m.token != "" && m.user != nil {
		header.Set("Authorization", "Bearer "+m.token)
	}
	return header
}

// IsAuthenticated はtokenとuserの両方が存在する場合にのみtrueを返す。
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != "" && m.user != nil
}

// User は現在のユーザーを返す。未認証の場合はnilを返す。
func (m *Manager) User() *model.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// Loading は初回検証サイクルの実行中のみtrueを返す。
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}
