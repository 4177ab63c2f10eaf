package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/quakewatch/internal/model"
)

// WriteErrorResponse はAPIエラーをJSONレスポンスとして書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(apiErr); err != nil {
		slog.Error("エラーレスポンスの書き込みに失敗しました", slog.String("error", err.Error()))
	}
}

// WriteInternalServerError は詳細を隠した500エラーレスポンスを書き込む。
// 内部エラーの詳細はログにのみ出力し、クライアントには公開しない。
func WriteInternalServerError(w http.ResponseWriter, err error) {
	slog.Error("内部サーバーエラー", slog.String("error", err.Error()))

	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "サーバー内部でエラーが発生しました。",
		Category: "internal",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
