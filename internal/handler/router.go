package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/quakewatch/internal/middleware"
)

// StoreInterface はルーターが必要とするストア操作の集約インターフェース。
type StoreInterface interface {
	QuakeStoreInterface
	CriteriaStoreInterface
	StatusStoreInterface
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Store     StoreInterface
	Refresher Refresher
	Alerts    AlertCounter
	Logger    *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// MetricsHandler はGET /metricsに応答するハンドラー。nilの場合は公開しない。
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → CORS → SecurityHeaders → RateLimit(General)
//
// ヘルスチェックとメトリクスはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	quakeHandler := NewQuakeHandler(deps.Store)
	criteriaHandler := NewCriteriaHandler(deps.Store, deps.Refresher, deps.Logger)
	statusHandler := NewStatusHandler(deps.Store, deps.Refresher, deps.Alerts)

	// --- 運用系ルート（レート制限の外） ---

	r.Get("/healthz", Healthz)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- APIルート ---
	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 地震イベント
		r.Route("/api/quakes", func(r chi.Router) {
			r.Get("/", quakeHandler.ListQuakes)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", quakeHandler.GetQuake)
				r.Post("/select", quakeHandler.SelectQuake)
			})
		})

		// 検索条件
		r.Route("/api/criteria", func(r chi.Router) {
			r.Get("/", criteriaHandler.GetCriteria)
			r.Patch("/", criteriaHandler.UpdateCriteria)
		})

		// 手動リフレッシュ（リフレッシュ専用レート制限を追加）
		r.With(deps.RateLimiter.RefreshMiddleware()).Post("/api/refresh", statusHandler.RequestRefresh)

		// システム状態
		r.Get("/api/status", statusHandler.GetStatus)
	})

	return r
}
