package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/fitadmin/internal/model"
)

// SessionCookieName はセッションIDを保持するCookie名。
const SessionCookieName = "session_id"

// SessionFinder はセッションIDからセッションを取得する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// SessionResolver はリクエストから呼び出し元のPrincipalを解決する。
// Cookieのセッションを優先し、無い場合はBearerトークンを検証する。
type SessionResolver struct {
	sessions SessionFinder
	tokens   *TokenVerifier
	logger   *slog.Logger
}

// NewSessionResolver はSessionResolverを生成する。tokensはnilでもよい。
func NewSessionResolver(sessions SessionFinder, tokens *TokenVerifier, logger *slog.Logger) *SessionResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionResolver{sessions: sessions, tokens: tokens, logger: logger}
}

// Resolve はPrincipalを返す。認証情報が無い・無効・期限切れの場合はfalseを返す。
// エラーは返さず、バックエンド障害もログに記録して未認証として扱う。
func (r *SessionResolver) Resolve(req *http.Request) (*model.Principal, bool) {
	if cookie, err := req.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		session, err := r.sessions.FindByID(req.Context(), cookie.Value)
		if err != nil {
			r.logger.Warn("session lookup failed",
				slog.String("error", err.Error()),
			)
			return nil, false
		}
		if session != nil && session.SubjectID != "" {
			return &model.Principal{SubjectID: session.SubjectID}, true
		}
	}

	token := bearerToken(req)
	if token == "" || !r.tokens.Enabled() {
		return nil, false
	}

	principal, err := r.tokens.Verify(token)
	if err != nil {
		r.logger.Debug("bearer token rejected", slog.String("error", err.Error()))
		return nil, false
	}
	return principal, true
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerToken(req *http.Request) string {
	h := req.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// HasBearerToken はリクエストがBearerトークンを持つかを返す。
func HasBearerToken(req *http.Request) bool {
	return bearerToken(req) != ""
}
