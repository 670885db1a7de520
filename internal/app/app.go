// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/fitadmin/internal/account"
	"github.com/hitoshi/fitadmin/internal/auth"
	"github.com/hitoshi/fitadmin/internal/catalog"
	"github.com/hitoshi/fitadmin/internal/config"
	"github.com/hitoshi/fitadmin/internal/database"
	"github.com/hitoshi/fitadmin/internal/handler"
	"github.com/hitoshi/fitadmin/internal/identity"
	"github.com/hitoshi/fitadmin/internal/logger"
	"github.com/hitoshi/fitadmin/internal/metrics"
	"github.com/hitoshi/fitadmin/internal/middleware"
	"github.com/hitoshi/fitadmin/internal/model"
	"github.com/hitoshi/fitadmin/internal/repository"
	"github.com/hitoshi/fitadmin/internal/security"
	"github.com/hitoshi/fitadmin/internal/worker/cleanup"
)

const (
	dbConnectTimeout = 10 * time.Second
	shutdownTimeout  = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("identity_provider", cfg.Identity.Provider),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rest []string
	if len(args) > 1 {
		rest = args[1:]
	}

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg, rest)
	case CommandBootstrapAdmin:
		return runBootstrapAdmin(ctx, cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// components はserveとbootstrap-adminで共有するサービス群。
type components struct {
	sessions *repository.PostgresSessionRepo
	profiles *repository.PostgresProfileRepo
	tokens   *auth.TokenVerifier
	metrics  *metrics.Collector
	registry *prometheus.Registry

	auth      *auth.Service
	gate      *auth.Gate
	resolver  *auth.SessionResolver
	accounts  *account.Service
	exercises *catalog.Service[model.Exercise]
	routines  *catalog.Service[model.Routine]
}

// newComponents はリポジトリとドメインサービスを組み立てる。
func newComponents(cfg *config.Config, db *sql.DB) (*components, error) {
	idp, err := newIdentityProvider(cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mc := metrics.NewCollector(registry)

	sessionRepo := repository.NewPostgresSessionRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	exerciseRepo := repository.NewPostgresResourceRepo(db, repository.ExercisesTable)
	routineRepo := repository.NewPostgresResourceRepo(db, repository.RoutinesTable)

	tokens := auth.NewTokenVerifier(cfg.JWTSecret)

	mediaURLs := security.NewMediaURLGuard()
	sanitizer := security.NewTextSanitizer()
	var prober catalog.MediaProber
	if cfg.MediaURLProbe {
		prober = catalog.NewHTTPMediaProber(mediaURLs.NewSafeClient(cfg.MediaURLProbeTimeout))
	}

	return &components{
		sessions: sessionRepo,
		profiles: profileRepo,
		tokens:   tokens,
		metrics:  mc,
		registry: registry,

		auth: auth.NewService(idp, profileRepo, sessionRepo, tokens,
			auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge}, slog.Default()),
		gate:      auth.NewGate(profileRepo, mc, slog.Default()),
		resolver:  auth.NewSessionResolver(sessionRepo, tokens, slog.Default()),
		accounts:  account.NewService(profileRepo, idp, sessionRepo, mc, slog.Default()),
		exercises: catalog.NewService(exerciseRepo, repository.ExercisesTable, sanitizer, mediaURLs, prober, slog.Default()),
		routines:  catalog.NewService(routineRepo, repository.RoutinesTable, sanitizer, mediaURLs, prober, slog.Default()),
	}, nil
}

// newIdentityProvider は設定に応じたIdPクライアントを返す。
func newIdentityProvider(cfg *config.Config) (identity.Provider, error) {
	switch cfg.Identity.Provider {
	case config.IdentityProviderGoTrue:
		return identity.NewGoTrueClient(identity.GoTrueConfig{
			BaseURL:    cfg.Identity.URL,
			ServiceKey: cfg.Identity.ServiceKey,
			APIKey:     cfg.Identity.APIKey,
			Timeout:    cfg.Identity.Timeout,
		}), nil
	case config.IdentityProviderMemory:
		slog.Warn("using in-memory identity provider; accounts are lost on restart")
		return identity.NewMemoryProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported identity provider: %q", cfg.Identity.Provider)
	}
}

// rateLimiterConfig は設定のreq/minをreq/secに変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rl := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rl.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rl.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitLogin > 0 {
		rl.LoginRate = rate.Limit(float64(cfg.RateLimitLogin) / 60.0)
		rl.LoginBurst = cfg.RateLimitLogin
	}
	return rl
}

// newRouter はcomponentsからHTTPルーターを組み立てる。
func newRouter(cfg *config.Config, c *components, db handler.HealthChecker, rl *middleware.RateLimiter) http.Handler {
	return handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		Resolver:          c.resolver,
		Gate:              c.gate,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter:    rl,
		Metrics:        c.metrics,
		MetricsHandler: metrics.Handler(c.registry),
		HealthChecker:  db,

		AuthService: c.auth,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		UserService:         c.accounts,
		RegistrationService: c.accounts,

		ExerciseService: c.exercises,
		RoutineService:  c.routines,
	})
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := database.Connect(ctx, cfg.DatabaseURL, dbConnectTimeout)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	c, err := newComponents(cfg, db)
	if err != nil {
		return err
	}

	rl := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rl.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      newRouter(cfg, c, db, rl),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの削除をSESSION_CLEANUP_INTERVAL毎に実行する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := database.Connect(ctx, cfg.DatabaseURL, dbConnectTimeout)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("worker starting",
		slog.Duration("session_cleanup_interval", cfg.SessionCleanupInterval),
	)

	cleanup.NewCleanupJob(db, slog.Default()).Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
func runMigrate(cfg *config.Config, args []string) error {
	direction, steps, err := ParseMigrateArgs(args)
	if err != nil {
		return err
	}

	slog.Info("running database migrations",
		slog.String("direction", string(direction)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	var version uint
	switch direction {
	case MigrateDown:
		version, err = database.MigrateDown(cfg.DatabaseURL, steps)
	default:
		version, err = database.MigrateUp(cfg.DatabaseURL)
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runBootstrapAdmin は管理者が1人もいない場合に初期管理者を作成する。
func runBootstrapAdmin(ctx context.Context, cfg *config.Config) error {
	if cfg.Bootstrap.Email == "" || cfg.Bootstrap.Password == "" {
		return fmt.Errorf("required environment variables are not set: [BOOTSTRAP_ADMIN_EMAIL BOOTSTRAP_ADMIN_PASSWORD]")
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL, dbConnectTimeout)
	if err != nil {
		return err
	}
	defer db.Close()

	c, err := newComponents(cfg, db)
	if err != nil {
		return err
	}

	profile, created, err := c.accounts.BootstrapAdmin(ctx, account.CreateUserInput{
		Name:     cfg.Bootstrap.Name,
		LastName: cfg.Bootstrap.LastName,
		Email:    cfg.Bootstrap.Email,
		Password: cfg.Bootstrap.Password,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin failed: %w", err)
	}

	slog.Info("bootstrap admin finished",
		slog.String("profile_id", profile.ID),
		slog.Bool("created", created),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%s/health", port))
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	return u.String()
}
