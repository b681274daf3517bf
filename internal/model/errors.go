package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示するメッセージと原因カテゴリを含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // ユーザー向けメッセージ
	Category string // カテゴリ: auth, validation, analysis, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNoFileSelected  = "NO_FILE_SELECTED"
	ErrCodeInvalidLanguage = "INVALID_LANGUAGE"
	ErrCodeLoginFailed     = "LOGIN_FAILED"
	ErrCodeUploadFailed    = "UPLOAD_FAILED"
	ErrCodeNotLoggedIn     = "NOT_LOGGED_IN"
	ErrCodeInvalidState    = "INVALID_STATE"
)

// ユーザー向けの汎用メッセージ。バックエンドがdetailを返さなかった場合の
// フォールバックとして使用する。
const (
	MsgNoFileSelected = "No file selected"
	MsgLoginFailed    = "Login failed"
	MsgUploadFailed   = "File upload failed. Please try again."
)

// NewNoFileSelectedError はファイル未選択エラーを生成する。
func NewNoFileSelectedError() *APIError {
	return &APIError{
		Code:     ErrCodeNoFileSelected,
		Message:  MsgNoFileSelected,
		Category: "validation",
	}
}

// NewInvalidLanguageError は未対応の言語コードエラーを生成する。
func NewInvalidLanguageError(code string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLanguage,
		Message:  fmt.Sprintf("Unsupported analysis language: %s", code),
		Category: "validation",
	}
}

// NewLoginFailedError はログイン失敗エラーを生成する。
// messageが空の場合は汎用メッセージを使用する。
func NewLoginFailedError(message string) *APIError {
	if message == "" {
		message = MsgLoginFailed
	}
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  message,
		Category: "auth",
	}
}

// NewUploadFailedError はファイル提出失敗エラーを生成する。
// messageが空の場合は汎用メッセージを使用する。
func NewUploadFailedError(message string) *APIError {
	if message == "" {
		message = MsgUploadFailed
	}
	return &APIError{
		Code:     ErrCodeUploadFailed,
		Message:  message,
		Category: "analysis",
	}
}

// NewNotLoggedInError は未ログイン状態で認証必須の操作を行った場合のエラーを生成する。
func NewNotLoggedInError() *APIError {
	return &APIError{
		Code:     ErrCodeNotLoggedIn,
		Message:  "You must be logged in to perform this action",
		Category: "auth",
	}
}

// NewInvalidStateError はワークフローの状態遷移が許可されない場合のエラーを生成する。
func NewInvalidStateError(operation, state string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidState,
		Message:  fmt.Sprintf("Operation %s is not allowed in state %s", operation, state),
		Category: "validation",
	}
}
