// Package catalog は運動・ルーティンのカタログ管理を提供する。
// 保存前に自由記述をプレーンテキスト化し、メディアURLを検証する。
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/fitadmin/internal/model"
	"github.com/hitoshi/fitadmin/internal/repository"
	"github.com/hitoshi/fitadmin/internal/security"
)

// URLValidator はメディアURLの静的検証を行う。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Service はカタログリソースのCRUDを提供する。
type Service[T any] struct {
	repo      repository.ResourceRepository[T]
	table     *repository.Table[T]
	sanitizer security.TextSanitizer
	urls      URLValidator
	prober    MediaProber
	logger    *slog.Logger
}

// NewService はServiceを生成する。proberがnilの場合は到達確認を行わない。
func NewService[T any](
	repo repository.ResourceRepository[T],
	table *repository.Table[T],
	sanitizer security.TextSanitizer,
	urls URLValidator,
	prober MediaProber,
	logger *slog.Logger,
) *Service[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service[T]{
		repo:      repo,
		table:     table,
		sanitizer: sanitizer,
		urls:      urls,
		prober:    prober,
		logger:    logger,
	}
}

// Resource はエラーメッセージに使うリソース名を返す。
func (s *Service[T]) Resource() string {
	return s.table.Resource
}

// List は全件を作成日時の降順で返す。
func (s *Service[T]) List(ctx context.Context) ([]*T, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, model.AsStoreError(err)
	}
	return items, nil
}

// Get は指定IDのレコードを返す。存在しない場合はNotFoundを返す。
func (s *Service[T]) Get(ctx context.Context, id string) (*T, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, model.AsStoreError(err)
	}
	if item == nil {
		return nil, model.NewNotFoundError(s.table.Resource, id)
	}
	return item, nil
}

// Create は入力を正規化してレコードを作成する。
func (s *Service[T]) Create(ctx context.Context, payload model.Payload) (*T, error) {
	prepared, err := s.prepare(ctx, payload)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.Create(ctx, prepared)
	if err != nil {
		return nil, model.AsStoreError(err)
	}

	s.logger.Info("catalog item created", slog.String("table", s.table.Name))
	return item, nil
}

// Update は入力を正規化してレコードを部分更新する。
func (s *Service[T]) Update(ctx context.Context, id string, payload model.Payload) (*T, error) {
	prepared, err := s.prepare(ctx, payload)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.Update(ctx, id, prepared)
	if err != nil {
		return nil, model.AsStoreError(err)
	}
	return item, nil
}

// Delete はレコードを削除する。
func (s *Service[T]) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return model.AsStoreError(err)
	}
	s.logger.Info("catalog item deleted",
		slog.String("table", s.table.Name),
		slog.String("id", id),
	)
	return nil
}

// prepare は空値を除いたうえで、自由記述のサニタイズとメディアURLの検証を行う。
// サニタイズで空になった値は未指定として扱う。
func (s *Service[T]) prepare(ctx context.Context, payload model.Payload) (model.Payload, error) {
	out := payload.Clean()

	for _, col := range s.table.Columns {
		raw, ok := out[col.Name].(string)
		if !ok {
			continue
		}

		switch {
		case col.Sanitize && s.sanitizer != nil:
			clean := s.sanitizer.SanitizeText(raw)
			if clean == "" {
				delete(out, col.Name)
				continue
			}
			out[col.Name] = clean

		case col.URL:
			u := strings.TrimSpace(raw)
			if err := s.checkMediaURL(ctx, u); err != nil {
				s.logger.Info("media url rejected",
					slog.String("column", col.Name),
					slog.String("url", u),
					slog.String("error", err.Error()),
				)
				return nil, model.NewInvalidFieldError(col.Name, "URL no permitida o inaccesible")
			}
			out[col.Name] = u
		}
	}

	return out, nil
}

func (s *Service[T]) checkMediaURL(ctx context.Context, u string) error {
	if s.urls != nil {
		if err := s.urls.ValidateURL(u); err != nil {
			return err
		}
	}
	if s.prober != nil {
		if err := s.prober.Probe(ctx, u); err != nil {
			return fmt.Errorf("probe failed: %w", err)
		}
	}
	return nil
}
