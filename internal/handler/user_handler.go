package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fitadmin/internal/account"
	"github.com/hitoshi/fitadmin/internal/middleware"
	"github.com/hitoshi/fitadmin/internal/model"
	"github.com/hitoshi/fitadmin/internal/query"
)

// UserServiceInterface はユーザー管理ハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	ListUsers(ctx context.Context) ([]*model.Profile, error)
	CreateUser(ctx context.Context, in account.CreateUserInput) (*model.Profile, error)
	UpdateUser(ctx context.Context, id string, payload model.Payload) (*model.Profile, error)
	DeleteUser(ctx context.Context, id string) error
}

// UserHandler は管理者向けユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// List はユーザー一覧を返す。search、sort、order、roleで絞り込める。
// GET /api/admin/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := query.ParseParams(r.URL.Query(), query.Users)
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": query.Apply(users, query.Users, params)})
}

// Create はIdPアカウントとプロフィールを作成する。
// POST /api/admin/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	profile, err := h.service.CreateUser(r.Context(), account.CreateUserInput{
		Name:     payloadString(payload, "name"),
		LastName: payloadString(payload, "last_name"),
		Email:    payloadString(payload, "email", "correo"),
		Password: payloadString(payload, "password"),
		Role:     model.Role(payloadString(payload, "role")),
		Age:      age,
		Weight:   weight,
	})
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user": profile})
}

// Update はプロフィールを部分更新する。
// PATCH /api/admin/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(w, r)
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	profile, err := h.service.UpdateUser(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": profile})
}

// Delete はプロフィールとIdPアカウントを削除する。
// DELETE /api/admin/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
