// Package model はドメインモデルを定義する。
package model

// User はバックエンドに登録されたサービス利用ユーザーを表す。
// ログイン成功時またはプロフィール再取得時にまるごと差し替えられる。
type User struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	Picture           string `json:"picture,omitempty"`
	OAuthProvider     string `json:"oauth_provider"`
	HasProviderAPIKey bool   `json:"has_gemini_api_key"`
}
