package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/fitadmin/internal/account"
	"github.com/hitoshi/fitadmin/internal/auth"
	"github.com/hitoshi/fitadmin/internal/middleware"
	"github.com/hitoshi/fitadmin/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
}

// RegistrationService は自己登録を行うサービスインターフェース。
type RegistrationService interface {
	Register(ctx context.Context, in account.RegisterInput) (*model.Profile, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はログイン・ログアウト・自己登録のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	accounts RegistrationService
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, accounts RegistrationService, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		accounts: accounts,
		config:   config,
	}
}

type loginResponse struct {
	OK          bool           `json:"ok"`
	User        *model.Profile `json:"user"`
	AccessToken string         `json:"access_token,omitempty"`
}

// Login はメールアドレスとパスワードでログインし、セッションCookieを設定する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(w, r)
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	result, err := h.service.Login(r.Context(), payloadString(payload, "email", "correo"), payloadString(payload, "password"))
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	h.setSessionCookie(w, result.Session.ID, h.config.SessionMaxAge)

	writeJSON(w, http.StatusOK, loginResponse{
		OK:          true,
		User:        result.Profile,
		AccessToken: result.AccessToken,
	})
}

// Logout はセッションを破棄する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			// ログアウト失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
		}
	}

	h.setSessionCookie(w, "", -1)

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Register はclientロールのユーザーを自己登録する。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(w, r)
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	age, err := payloadInt(payload, "age")
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}
	weight, err := payloadFloat(payload, "weight")
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	profile, err := h.accounts.Register(r.Context(), account.RegisterInput{
		Name:         payloadString(payload, "name"),
		LastName:     payloadString(payload, "last_name"),
		Email:        payloadString(payload, "email", "correo"),
		Password:     payloadString(payload, "password"),
		ConfPassword: payloadString(payload, "conf_password"),
		Age:          age,
		Weight:       weight,
	})
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "user": profile})
}

// Me はロールゲートが読み直した現在のプロフィールを返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		middleware.WriteServiceError(w, r, model.NewUnauthenticatedError())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": profile})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
