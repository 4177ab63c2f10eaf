package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// requestIDKey はコンテキストに格納するリクエストIDのキー。
type requestIDKey struct{}

// headerRequestID はリクエストIDを伝搬するHTTPヘッダー名。
const headerRequestID = "X-Request-Id"

// NewRequestIDMiddleware は各リクエストに一意のIDを割り当てるミドルウェアを返す。
// クライアントがX-Request-Idヘッダーを送ってきた場合はそれを引き継ぎ、
// なければUUIDを新規発行する。IDはレスポンスヘッダーとコンテキストの両方に設定される。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(headerRequestID)
			if id == "" {
				id = uuid.NewString()
			}

			w.Header().Set(headerRequestID, id)
			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext はコンテキストからリクエストIDを取得する。
// 未設定の場合は空文字列を返す。
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
