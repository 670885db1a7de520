package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fitadmin/internal/middleware"
	"github.com/hitoshi/fitadmin/internal/model"
	"github.com/hitoshi/fitadmin/internal/query"
)

// CatalogService はカタログ（運動・ルーティン）ハンドラーが必要とするサービスインターフェース。
type CatalogService[T any] interface {
	List(ctx context.Context) ([]*T, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, payload model.Payload) (*T, error)
	Update(ctx context.Context, id string, payload model.Payload) (*T, error)
	Delete(ctx context.Context, id string) error
}

// CatalogHandler はカタログ資源のCRUDハンドラー。
// singularとpluralはレスポンスのエンベロープのキーになる。
type CatalogHandler[T any] struct {
	service    CatalogService[T]
	descriptor query.Descriptor[*T]
	singular   string
	plural     string
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler[T any](service CatalogService[T], descriptor query.Descriptor[*T], singular, plural string) *CatalogHandler[T] {
	return &CatalogHandler[T]{
		service:    service,
		descriptor: descriptor,
		singular:   singular,
		plural:     plural,
	}
}

// Routes はchiのサブルーターに資源のルートを登録する。
func (h *CatalogHandler[T]) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
	})
}

// List は一覧を新しい順に取得し、クエリパラメータを適用して返す。
func (h *CatalogHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	params, err := query.ParseParams(r.URL.Query(), h.descriptor)
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	records, err := h.service.List(r.Context())
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{h.plural: query.Apply(records, h.descriptor, params)})
}

// Get は1件を返す。
func (h *CatalogHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{h.singular: record})
}

// Create は新規作成し、201で返す。
func (h *CatalogHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(w, r)
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	record, err := h.service.Create(r.Context(), payload)
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{h.singular: record})
}

// Update は部分更新する。
func (h *CatalogHandler[T]) Update(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(w, r)
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	record, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{h.singular: record})
}

// Delete は削除する。
func (h *CatalogHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
