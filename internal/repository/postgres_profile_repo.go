package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/fitadmin/internal/model"
)

// PostgresProfileRepo はprofilesテーブルのリポジトリ。
// 汎用CRUDに加えてsubject IDによる検索を提供する。
type PostgresProfileRepo struct {
	*PostgresResourceRepo[model.Profile]
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{
		PostgresResourceRepo: NewPostgresResourceRepo(db, ProfilesTable),
	}
}

// FindBySubjectID はIdPのsubject IDでプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindBySubjectID(ctx context.Context, subjectID string) (*model.Profile, error) {
	if subjectID == "" {
		return nil, nil
	}
	return r.FindOneBy(ctx, "auth_id", subjectID)
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
