package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody はエラーレスポンスとして読み取る最大バイト数。
const maxErrorBody = 4096

// GoTrueConfig はGoTrue互換IdP（Supabase Auth等）の設定。
type GoTrueConfig struct {
	// BaseURL は認証APIのベースURL（例: https://xyz.supabase.co/auth/v1）。
	BaseURL string
	// ServiceKey は管理API用のサービスロールキー。
	ServiceKey string
	// APIKey はパスワード認証用の公開キー。空の場合はServiceKeyを使う。
	APIKey  string
	Timeout time.Duration

	// テスト用に差し替え可能なHTTPクライアント
	HTTPClient *http.Client
}

// GoTrueClient はGoTrueの管理APIとトークンAPIを呼び出すProvider実装。
type GoTrueClient struct {
	config GoTrueConfig
	client *http.Client
}

// NewGoTrueClient はGoTrueClientを生成する。
func NewGoTrueClient(config GoTrueConfig) *GoTrueClient {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.APIKey == "" {
		config.APIKey = config.ServiceKey
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	return &GoTrueClient{config: config, client: client}
}

// gotrueUser はGoTrueのユーザーオブジェクト。
type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// gotrueTokenResponse はパスワードグラントのレスポンス。
type gotrueTokenResponse struct {
	AccessToken string     `json:"access_token"`
	User        gotrueUser `json:"user"`
}

// CreateAccount はメール確認済みのアカウントを作成する。
// POST /admin/users
func (c *GoTrueClient) CreateAccount(ctx context.Context, email, password string) (*Account, error) {
	body := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
	}

	var user gotrueUser
	status, err := c.do(ctx, http.MethodPost, "/admin/users", c.config.ServiceKey, body, &user)
	if err != nil {
		switch status {
		case http.StatusUnprocessableEntity, http.StatusConflict:
			return nil, fmt.Errorf("%w: %v", ErrEmailTaken, err)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("empty user id in create response")
	}

	return &Account{SubjectID: user.ID, Email: user.Email}, nil
}

// DeleteAccount はアカウントを削除する。
// DELETE /admin/users/{id}
func (c *GoTrueClient) DeleteAccount(ctx context.Context, subjectID string) error {
	status, err := c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(subjectID), c.config.ServiceKey, nil, nil)
	if err != nil {
		if status == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, subjectID)
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// UpdateEmail はアカウントのメールアドレスを変更する。
// PUT /admin/users/{id}
func (c *GoTrueClient) UpdateEmail(ctx context.Context, subjectID, email string) error {
	body := map[string]any{
		"email":         email,
		"email_confirm": true,
	}
	status, err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(subjectID), c.config.ServiceKey, body, nil)
	if err != nil {
		switch status {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrAccountNotFound, subjectID)
		case http.StatusUnprocessableEntity, http.StatusConflict:
			return fmt.Errorf("%w: %v", ErrEmailTaken, err)
		}
		return fmt.Errorf("failed to update account email: %w", err)
	}
	return nil
}

// Authenticate はパスワードグラントでアカウントを認証する。
// POST /token?grant_type=password
func (c *GoTrueClient) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}

	var token gotrueTokenResponse
	status, err := c.do(ctx, http.MethodPost, "/token?grant_type=password", c.config.APIKey, body, &token)
	if err != nil {
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	if token.User.ID == "" {
		return nil, fmt.Errorf("empty user id in token response")
	}

	return &Account{SubjectID: token.User.ID, Email: token.User.Email}, nil
}

// do はJSONリクエストを送信し、2xxの場合はレスポンスをoutにデコードする。
// 2xx以外の場合はステータスコードとエラーを返す。
func (c *GoTrueClient) do(ctx context.Context, method, path, key string, in, out any) (int, error) {
	var reader io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s request failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// compile-time interface check
var _ Provider = (*GoTrueClient)(nil)
