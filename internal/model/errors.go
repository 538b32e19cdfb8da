// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, event, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEventNotFound  = "EVENT_NOT_FOUND"
	ErrCodeInvalidConfig  = "INVALID_EVENT_CONFIG"
	ErrCodeNameRequired   = "NAME_REQUIRED"
	ErrCodeInvalidSlot    = "INVALID_SLOT"
	ErrCodeAuthDenied     = "AUTH_DENIED"
	ErrCodeInvalidFilter  = "INVALID_FILTER"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
)

// NewEventNotFoundError はイベント未検出エラーを生成する。
func NewEventNotFoundError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %s", eventID),
		Category: "event",
		Action:   "イベントのリンクが正しいか確認してください。",
	}
}

// NewInvalidConfigError はイベント設定が不正な場合のエラーを生成する。
// 不正なステップ幅や日付・時刻の書式エラーはイベント作成時に拒否され、
// グリッド生成まで到達しない。
func NewInvalidConfigError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidConfig,
		Message:  fmt.Sprintf("イベント設定が不正です: %s", reason),
		Category: "validation",
		Action:   "日付はYYYY-MM-DD、時刻はHH:MM形式で、刻み幅は正の整数を指定してください。",
	}
}

// NewNameRequiredError は参加者名が未指定の場合のエラーを生成する。
func NewNameRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeNameRequired,
		Message:  "名前は必須です。",
		Category: "validation",
		Action:   "名前を入力してください。",
	}
}

// NewInvalidSlotError はスロット識別子の書式が不正な場合のエラーを生成する。
func NewInvalidSlotError(slot string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSlot,
		Message:  fmt.Sprintf("スロット識別子の書式が不正です: %s", slot),
		Category: "validation",
		Action:   "スロットは \"YYYY-MM-DD|HH:MM\" 形式で指定してください。",
	}
}

// NewAuthDeniedError は参加者の照合失敗エラーを生成する。
// パスワード不一致と名前の存在有無を区別しない単一の汎用メッセージを返し、
// どの名前がパスワード保護されているかの情報漏えいを防ぐ。
func NewAuthDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthDenied,
		Message:  "パスワードが正しくないか、参加者の読み込みに失敗しました。",
		Category: "auth",
		Action:   "名前とパスワードを確認して再度お試しください。",
	}
}

// NewInvalidFilterError は無効な表示フィルタエラーを生成する。
func NewInvalidFilterError(filter string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("無効なフィルタです: %s", filter),
		Category: "validation",
		Action:   "フィルタには all、hide-working、only-working のいずれかを指定してください。",
	}
}
