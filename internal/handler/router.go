package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fitadmin/internal/metrics"
	"github.com/hitoshi/fitadmin/internal/middleware"
	"github.com/hitoshi/fitadmin/internal/model"
	"github.com/hitoshi/fitadmin/internal/query"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Resolver          middleware.PrincipalResolver
	Gate              middleware.Authorizer
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	MetricsHandler    http.Handler
	HealthChecker     HealthChecker

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ユーザー管理。自己登録も同じサービスが担う
	UserService         UserServiceInterface
	RegistrationService RegistrationService

	// カタログ
	ExerciseService CatalogService[model.Exercise]
	RoutineService  CatalogService[model.Routine]
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → Session
//
// Sessionは呼び出し元を解決するだけで拒否しない。
// /api/admin/* はさらに RoleGate(admin) → RateLimit(General) → CSRF を通る。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mc := deps.Metrics
	if mc == nil {
		mc = metrics.Noop{}
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(mc))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.CSRFConfig.CookieSecure))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSessionMiddleware(deps.Resolver))

	authHandler := NewAuthHandler(deps.AuthService, deps.RegistrationService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService)
	exerciseHandler := NewCatalogHandler(deps.ExerciseService, query.Exercises, "exercise", "exercises")
	routineHandler := NewCatalogHandler(deps.RoutineService, query.Routines, "routine", "routines")

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/register", authHandler.Register)
		r.Post("/logout", authHandler.Logout)

		// プロフィールを持つ認証済みユーザーであればロールは問わない
		r.With(middleware.NewRoleGateMiddleware(deps.Gate, "")).Get("/me", authHandler.Me)
	})

	// --- 管理者専用のルート ---
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.NewRoleGateMiddleware(deps.Gate, model.RoleAdmin))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Create)
			r.Patch("/{id}", userHandler.Update)
			r.Delete("/{id}", userHandler.Delete)
		})
		r.Route("/exercises", exerciseHandler.Routes)
		r.Route("/routines", routineHandler.Routes)
	})

	return r
}
