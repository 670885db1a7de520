// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/fitadmin/internal/model"
)

// ResourceRepository は管理対象リソースの汎用CRUDインターフェース。
type ResourceRepository[T any] interface {
	// List は全件をcreated_at降順で返す。
	List(ctx context.Context) ([]*T, error)
	// FindByID は指定IDのレコードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*T, error)
	// FindOneBy は列の等価条件で1件取得する。見つからない場合はnilを返す。
	FindOneBy(ctx context.Context, column string, value any) (*T, error)
	// Create は必須列を検証して1行を作成する。
	Create(ctx context.Context, payload model.Payload) (*T, error)
	// Update は空値を除いた列のみを部分更新する。
	Update(ctx context.Context, id string, payload model.Payload) (*T, error)
	// Delete は指定IDの行を削除する。該当行がない場合はNotFoundを返す。
	Delete(ctx context.Context, id string) error
}

// ProfileRepository はプロフィールの永続化インターフェース。
type ProfileRepository interface {
	ResourceRepository[model.Profile]
	// FindBySubjectID はIdPのsubject IDでプロフィールを取得する。見つからない場合はnilを返す。
	FindBySubjectID(ctx context.Context, subjectID string) (*model.Profile, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteBySubjectID は指定subjectの全セッションを削除する。
	DeleteBySubjectID(ctx context.Context, subjectID string) error
}

// compile-time interface check
var (
	_ ResourceRepository[model.Exercise] = (*PostgresResourceRepo[model.Exercise])(nil)
	_ ResourceRepository[model.Routine]  = (*PostgresResourceRepo[model.Routine])(nil)
)
