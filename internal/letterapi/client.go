// Package letterapi は手紙解析バックエンドAPIのクライアントを提供する。
// 認証・プロフィール・ファイル解析・プロバイダー状況の各エンドポイント呼び出しと、
// エラーレスポンスの正規化を含む。
package letterapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/hitoshi/letterlens/internal/model"
)

const (
	profilePath         = "/api/profile"
	verifyGooglePath    = "/api/auth/google/verify"
	geminiAPIKeyPath    = "/api/gemini-api-key"
	analyzePath         = "/api/analyze-file"
	analyzeUserKeysPath = "/api/analyze-file-with-user-keys"
	llmStatusPath       = "/api/llm-status"
)

// StatusError はバックエンドが返した非2xxレスポンスを表す。
// Detailはエラーレスポンスボディのdetailフィールド（存在しない場合は空文字列）。
type StatusError struct {
	StatusCode int
	Detail     string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// UserMessage はエラーからユーザー向けメッセージを抽出する。
// バックエンドがdetailを返している場合はそれを、それ以外（トランスポート障害や
// detailなしのエラーレスポンス）の場合はfallbackを返す。
func UserMessage(err error, fallback string) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Detail != "" {
		return statusErr.Detail
	}
	return fallback
}

// errorEnvelope はバックエンドのエラーレスポンスの型付き表現。
// detailフィールドは省略されうる。
type errorEnvelope struct {
	Detail string `json:"detail"`
}

// Client は手紙解析バックエンドAPIのHTTPクライアント。
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURL末尾のスラッシュは取り除かれる。
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// GetProfile はベアラートークンでユーザープロフィールを取得する。
// トークンが無効な場合は401のStatusErrorを返す。
func (c *Client) GetProfile(ctx context.Context, token string) (*model.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+profilePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse profile response: %w", err)
	}

	return &user, nil
}

// verifyResponse は認証情報交換エンドポイントの成功レスポンス。
type verifyResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        *model.User `json:"user"`
}

// VerifyGoogleCredential はGoogleのIDトークンをバックエンド発行の
// ベアラートークンとユーザープロフィールに交換する。
func (c *Client) VerifyGoogleCredential(ctx context.Context, credential string) (string, *model.User, error) {
	payload, err := json.Marshal(map[string]string{"credential": credential})
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode credential payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyGooglePath, bytes.NewReader(payload))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return "", nil, err
	}

	var resp verifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", nil, fmt.Errorf("failed to parse verify response: %w", err)
	}
	if resp.AccessToken == "" || resp.User == nil {
		return "", nil, fmt.Errorf("verify response is missing access token or user")
	}

	return resp.AccessToken, resp.User, nil
}

// SaveGeminiAPIKey はユーザーのGemini APIキーをバックエンドに保存する。
// authHeaderにはセッションの認可ヘッダーを渡す。
func (c *Client) SaveGeminiAPIKey(ctx context.Context, authHeader http.Header, apiKey string) error {
	payload, err := json.Marshal(map[string]string{"gemini_api_key": apiKey})
	if err != nil {
		return fmt.Errorf("failed to encode api key payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+geminiAPIKeyPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create api key request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	copyHeader(req.Header, authHeader)

	if _, err := c.do(req); err != nil {
		return err
	}
	return nil
}

// AnalyzeFile は匿名ルートでファイルを解析する。認可ヘッダーは付与しない。
func (c *Client) AnalyzeFile(ctx context.Context, doc *model.Document, language string) (*model.AnalysisResult, error) {
	return c.analyze(ctx, analyzePath, doc, language, nil)
}

// AnalyzeFileWithUserKeys は認証済みルートでファイルを解析する。
// authHeaderにはセッションの認可ヘッダーを渡す。
func (c *Client) AnalyzeFileWithUserKeys(ctx context.Context, doc *model.Document, language string, authHeader http.Header) (*model.AnalysisResult, error) {
	return c.analyze(ctx, analyzeUserKeysPath, doc, language, authHeader)
}

// analyze はmultipartボディ（file + language）を構築し解析エンドポイントに送信する。
func (c *Client) analyze(ctx context.Context, path string, doc *model.Document, language string, authHeader http.Header) (*model.AnalysisResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	// fileパートにはContent-Typeとファイル名を保持させる
	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, doc.Name))
	mimeType := doc.MIME
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	partHeader.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(partHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart file part: %w", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, fmt.Errorf("failed to write file data: %w", err)
	}
	if err := writer.WriteField("language", language); err != nil {
		return nil, fmt.Errorf("failed to write language field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	copyHeader(req.Header, authHeader)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	return &result, nil
}

// GetLLMStatus はバックエンドのLLMプロバイダー稼働状況を取得する。
func (c *Client) GetLLMStatus(ctx context.Context) (*model.ProviderStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+llmStatusPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm status request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var status model.ProviderStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to parse llm status response: %w", err)
	}

	return &status, nil
}

// do はリクエストを実行し、2xxの場合はレスポンスボディを返す。
// 非2xxの場合はエラーレスポンスのdetailを正規化したStatusErrorを返す。
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("backend request failed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var envelope errorEnvelope
		if err := json.Unmarshal(body, &envelope); err == nil {
			statusErr.Detail = envelope.Detail
		}
		c.logger.Warn("backend returned error status",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, statusErr
	}

	return body, nil
}

// copyHeader はsrcの全ヘッダーをdstに設定する。srcがnilの場合は何もしない。
func copyHeader(dst, src http.Header) {
	for key, values := range src {
		for _, v := range values {
			dst.Set(key, v)
		}
	}
}
