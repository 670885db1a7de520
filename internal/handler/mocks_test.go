package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fitadmin/internal/account"
	"github.com/hitoshi/fitadmin/internal/auth"
	"github.com/hitoshi/fitadmin/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	loginFn  func(ctx context.Context, email, password string) (*auth.LoginResult, error)
	logoutFn func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.LoginResult, error) {
	return m.loginFn(ctx, email, password)
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

type mockUserService struct {
	listFn     func(ctx context.Context) ([]*model.Profile, error)
	createFn   func(ctx context.Context, in account.CreateUserInput) (*model.Profile, error)
	updateFn   func(ctx context.Context, id string, payload model.Payload) (*model.Profile, error)
	deleteFn   func(ctx context.Context, id string) error
	registerFn func(ctx context.Context, in account.RegisterInput) (*model.Profile, error)
}

func (m *mockUserService) ListUsers(ctx context.Context) ([]*model.Profile, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockUserService) CreateUser(ctx context.Context, in account.CreateUserInput) (*model.Profile, error) {
	return m.createFn(ctx, in)
}

func (m *mockUserService) UpdateUser(ctx context.Context, id string, payload model.Payload) (*model.Profile, error) {
	return m.updateFn(ctx, id, payload)
}

func (m *mockUserService) DeleteUser(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockUserService) Register(ctx context.Context, in account.RegisterInput) (*model.Profile, error) {
	return m.registerFn(ctx, in)
}

type mockCatalogService[T any] struct {
	records  []*T
	createFn func(ctx context.Context, payload model.Payload) (*T, error)
	updateFn func(ctx context.Context, id string, payload model.Payload) (*T, error)
	getFn    func(ctx context.Context, id string) (*T, error)
	deleted  []string
}

func (m *mockCatalogService[T]) List(context.Context) ([]*T, error) {
	return m.records, nil
}

func (m *mockCatalogService[T]) Get(ctx context.Context, id string) (*T, error) {
	return m.getFn(ctx, id)
}

func (m *mockCatalogService[T]) Create(ctx context.Context, payload model.Payload) (*T, error) {
	return m.createFn(ctx, payload)
}

func (m *mockCatalogService[T]) Update(ctx context.Context, id string, payload model.Payload) (*T, error) {
	return m.updateFn(ctx, id, payload)
}

func (m *mockCatalogService[T]) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

// --- ヘルパー ---

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withURLParam はchiのURLパラメータをリクエストに設定する。
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v\nraw: %s", err, w.Body.String())
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, w, &body)
	return body.Code
}
