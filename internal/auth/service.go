// Package auth はログイン、セッション解決、ロールによる認可を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/fitadmin/internal/identity"
	"github.com/hitoshi/fitadmin/internal/model"
	"github.com/hitoshi/fitadmin/internal/repository"
)

// Authenticator はメールアドレスとパスワードを検証するIdP操作。
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*identity.Account, error)
}

// SessionStore はログインセッションの永続化先。
type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	DeleteByID(ctx context.Context, id string) error
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// LoginResult はログイン成功時の結果。
// Profileはプロフィール未作成のアカウントではnilになる。
type LoginResult struct {
	Session     *model.Session
	Profile     *model.Profile
	AccessToken string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	idp      Authenticator
	profiles ProfileFinder
	sessions SessionStore
	tokens   *TokenVerifier
	config   ServiceConfig
	logger   *slog.Logger
}

// NewService はServiceを生成する。tokensがnilまたは無効の場合はアクセストークンを発行しない。
func NewService(
	idp Authenticator,
	profiles ProfileFinder,
	sessions SessionStore,
	tokens *TokenVerifier,
	config ServiceConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		idp:      idp,
		profiles: profiles,
		sessions: sessions,
		tokens:   tokens,
		config:   config,
		logger:   logger,
	}
}

// Login はIdPで認証し、セッションを発行する。
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldsError(missing)
	}

	account, err := s.idp.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			s.logger.Info("login rejected", slog.String("email", email))
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, model.NewIdentityProviderError(err)
	}

	profile, err := s.profiles.FindBySubjectID(ctx, account.SubjectID)
	if err != nil {
		return nil, model.NewStoreError(fmt.Errorf("failed to find profile: %w", err))
	}

	session, err := s.createSession(ctx, account.SubjectID)
	if err != nil {
		return nil, model.NewStoreError(fmt.Errorf("failed to create session: %w", err))
	}

	result := &LoginResult{Session: session, Profile: profile}
	if s.tokens.Enabled() {
		var role *model.Role
		if profile != nil {
			role = &profile.Role
		}
		token, err := s.tokens.Issue(account.SubjectID, role)
		if err != nil {
			return nil, fmt.Errorf("failed to issue access token: %w", err)
		}
		result.AccessToken = token
	}

	s.logger.Info("user logged in",
		slog.String("subject_id", account.SubjectID),
		slog.Bool("has_profile", profile != nil),
	)
	return result, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	// トークンそのものは記録しない。保存キーの先頭だけで突き合わせられる
	s.logger.Info("user logged out", slog.String("session_ref", repository.HashSessionToken(sessionID)[:12]))
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, subjectID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		SubjectID: subjectID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
