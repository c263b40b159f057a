package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/labnote/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	TokenFinder       middleware.TokenFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	MetricsRecorder   middleware.HTTPMetricsRecorder
	MetricsHandler    http.Handler

	// 認証
	AuthService AuthServiceInterface

	// 実験
	ExperimentService ExperimentServiceInterface
	LinkValidator     LinkValidator

	// タグ・材料
	TagService        AttributeServiceInterface
	IngredientService AttributeServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SecurityHeadersMiddleware → LoggingMiddleware → RecoveryMiddleware
//	→ TokenMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 登録・ログインルート（/auth/register, /auth/login）はトークンミドルウェアの外に配置し、
// 登録には登録専用レート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.MetricsRecorder))
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService)
	expHandler := NewExperimentHandler(deps.ExperimentService, deps.LinkValidator)
	tagHandler := NewAttributeHandler(deps.TagService)
	ingredientHandler := NewAttributeHandler(deps.IngredientService)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		// POST /auth/register - ユーザー登録（登録専用レート制限を追加）
		r.With(deps.RateLimiter.RegisterMiddleware()).Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		// トークンが必要なセッション操作
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewTokenMiddleware(deps.TokenFinder))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
			r.Post("/password", authHandler.ChangePassword)
		})
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Token → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewTokenMiddleware(deps.TokenFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 実験管理
		r.Route("/api/experiments", func(r chi.Router) {
			r.Get("/", expHandler.List)
			r.Post("/", expHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", expHandler.Get)
				r.Put("/", expHandler.Update)
				r.Patch("/", expHandler.Update)
				r.Delete("/", expHandler.Delete)
			})
		})

		// タグ管理
		r.Route("/api/tags", func(r chi.Router) {
			r.Get("/", tagHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", tagHandler.Update)
				r.Delete("/", tagHandler.Delete)
			})
		})

		// 材料管理
		r.Route("/api/ingredients", func(r chi.Router) {
			r.Get("/", ingredientHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", ingredientHandler.Update)
				r.Delete("/", ingredientHandler.Delete)
			})
		})

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", authHandler.Withdraw)
		})
	})

	return r
}
