// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string `json:"code"`     // エラーコード
	Message  string `json:"message"`  // エラーメッセージ
	Category string `json:"category"` // カテゴリ: validation, feed, internal
	Action   string `json:"action"`   // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCriteria = "INVALID_CRITERIA"
	ErrCodeEventNotFound   = "EVENT_NOT_FOUND"
	ErrCodeFetchFailed     = "FETCH_FAILED"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
)

// NewInvalidCriteriaError は無効な検索条件エラーを生成する。
func NewInvalidCriteriaError(field, value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCriteria,
		Message:  fmt.Sprintf("無効な検索条件です: %s = %s", field, value),
		Category: "validation",
		Action:   "指定可能な値を確認してください。",
	}
}

// NewEventNotFoundError はイベント未検出エラーを生成する。
func NewEventNotFoundError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %s", eventID),
		Category: "feed",
		Action:   "イベントIDを確認するか、最新のデータを再取得してください。",
	}
}

// NewFetchFailedError はフィード取得失敗エラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("フィードの取得に失敗しました: %s", reason),
		Category: "feed",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidRequestError は不正なリクエストボディエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストの形式が不正です: %s", reason),
		Category: "validation",
		Action:   "リクエストボディの形式を確認してください。",
	}
}
