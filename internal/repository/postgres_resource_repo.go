package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/fitadmin/internal/model"
)

// PostgresResourceRepo はTable定義に従って1テーブルのCRUDを提供する汎用リポジトリ。
// 一覧は常にcreated_at降順で返す。
type PostgresResourceRepo[T any] struct {
	db    *sql.DB
	table *Table[T]
	now   func() time.Time
}

// NewPostgresResourceRepo はPostgresResourceRepoを生成する。
func NewPostgresResourceRepo[T any](db *sql.DB, table *Table[T]) *PostgresResourceRepo[T] {
	return &PostgresResourceRepo[T]{db: db, table: table, now: time.Now}
}

// Table はテーブル定義を返す。
func (r *PostgresResourceRepo[T]) Table() *Table[T] {
	return r.table
}

// List は全件をcreated_at降順で返す。ページネーションは行わない。
func (r *PostgresResourceRepo[T]) List(ctx context.Context) ([]*T, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC`, r.table.selectList(), r.table.Name),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.table.Name, err)
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		rec, err := r.table.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.table.Name, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", r.table.Name, err)
	}

	return out, nil
}

// FindByID は指定IDのレコードを取得する。見つからない場合はnilを返す。
// UUIDとして不正なIDも「見つからない」として扱う。
func (r *PostgresResourceRepo[T]) FindByID(ctx context.Context, id string) (*T, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.FindOneBy(ctx, "id", id)
}

// FindOneBy は列の等価条件で最初の1件を取得する。見つからない場合はnilを返す。
func (r *PostgresResourceRepo[T]) FindOneBy(ctx context.Context, column string, value any) (*T, error) {
	if column != "id" {
		if _, ok := r.table.Column(column); !ok {
			return nil, fmt.Errorf("unknown column %s.%s", r.table.Name, column)
		}
	}

	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY created_at DESC LIMIT 1`,
			r.table.selectList(), r.table.Name, column),
		value,
	)
	rec, err := r.table.Scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s by %s: %w", r.table.Name, column, err)
	}
	return rec, nil
}

// Create は必須列を検証してから1行を挿入し、挿入後のレコードを返す。
// 検証エラーの場合はデータベースにアクセスしない。
func (r *PostgresResourceRepo[T]) Create(ctx context.Context, payload model.Payload) (*T, error) {
	values, err := r.table.prepareInsert(payload)
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(values)+2)
	placeholders := make([]string, 0, len(values)+2)
	args := make([]any, 0, len(values)+2)

	columns = append(columns, "id")
	args = append(args, uuid.New().String())
	for _, a := range values {
		columns = append(columns, a.column)
		args = append(args, a.value)
	}
	columns = append(columns, "created_at")
	args = append(args, r.now().UTC())

	for i := range args {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}

	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
			r.table.Name, strings.Join(columns, ", "), strings.Join(placeholders, ", "), r.table.selectList()),
		args...,
	)
	rec, err := r.table.Scan(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", r.table.Name, err)
	}
	return rec, nil
}

// Update は部分更新を行い、更新後のレコードを返す。
// 更新対象の列が残らない場合はNothingToUpdateを返し、データベースにアクセスしない。
// 該当行がない場合はNotFoundを返す。
func (r *PostgresResourceRepo[T]) Update(ctx context.Context, id string, payload model.Payload) (*T, error) {
	values, err := r.table.prepareUpdate(payload)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewNotFoundError(r.table.Resource, id)
	}

	sets := make([]string, 0, len(values))
	args := make([]any, 0, len(values)+1)
	for i, a := range values {
		sets = append(sets, fmt.Sprintf("%s = $%d", a.column, i+1))
		args = append(args, a.value)
	}
	args = append(args, id)

	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d RETURNING %s`,
			r.table.Name, strings.Join(sets, ", "), len(args), r.table.selectList()),
		args...,
	)
	rec, err := r.table.Scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError(r.table.Resource, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", r.table.Name, err)
	}
	return rec, nil
}

// Delete は指定IDの行を削除する。該当行がない場合はNotFoundを返す。
func (r *PostgresResourceRepo[T]) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.NewNotFoundError(r.table.Resource, id)
	}

	result, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table.Name),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.table.Name, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return model.NewNotFoundError(r.table.Resource, id)
	}
	return nil
}
