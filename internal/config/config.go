// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// IdPの種類
const (
	IdentityProviderGoTrue = "gotrue"
	IdentityProviderMemory = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// Identity provider
	Identity IdentityConfig `envPrefix:"IDENTITY_"`

	// Bearerトークン検証用の共有鍵。空の場合はBearer認証を無効にする。
	JWTSecret string `env:"JWT_SECRET"`

	// Session
	SessionMaxAge          int           `env:"SESSION_MAX_AGE" envDefault:"86400"`
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1h"`

	// Rate Limit（req/min）
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitLogin   int `env:"RATE_LIMIT_LOGIN" envDefault:"10"`

	// Media
	MediaURLProbe        bool          `env:"MEDIA_URL_PROBE" envDefault:"false"`
	MediaURLProbeTimeout time.Duration `env:"MEDIA_URL_PROBE_TIMEOUT" envDefault:"5s"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL    string `env:"BASE_URL,required,notEmpty"`

	// Cookie
	CookieSecure bool   `env:"-"`
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// CORS（カンマ区切りで複数指定可）
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`

	// bootstrap-admin サブコマンド
	Bootstrap BootstrapConfig `envPrefix:"BOOTSTRAP_ADMIN_"`
}

// IdentityConfig は外部IdP（GoTrue互換）の接続設定。
type IdentityConfig struct {
	Provider   string        `env:"PROVIDER" envDefault:"gotrue"`
	URL        string        `env:"URL"`
	ServiceKey string        `env:"SERVICE_KEY"`
	APIKey     string        `env:"API_KEY"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// BootstrapConfig は初期管理者の作成に使う設定。
type BootstrapConfig struct {
	Email    string `env:"EMAIL"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME" envDefault:"Admin"`
	LastName string `env:"LAST_NAME" envDefault:"Fitadmin"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	switch cfg.Identity.Provider {
	case IdentityProviderGoTrue:
		var missing []string
		if cfg.Identity.URL == "" {
			missing = append(missing, "IDENTITY_URL")
		}
		if cfg.Identity.ServiceKey == "" {
			missing = append(missing, "IDENTITY_SERVICE_KEY")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("required environment variables are not set: %v", missing)
		}
		if cfg.Identity.APIKey == "" {
			cfg.Identity.APIKey = cfg.Identity.ServiceKey
		}
	case IdentityProviderMemory:
	default:
		return nil, fmt.Errorf("unsupported IDENTITY_PROVIDER: %q", cfg.Identity.Provider)
	}

	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	return cfg, nil
}
