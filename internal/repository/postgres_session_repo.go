package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/hitoshi/fitadmin/internal/model"
)

// PostgresSessionRepo はログインセッションをPostgreSQLに保存する。
// テーブルにはトークンのハッシュのみを保存し、Session.IDには呼び出し側が持つ生のトークンを入れる。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// HashSessionToken はセッショントークンから保存用のキーを導出する。
func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create はセッションを保存する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if session.ID == "" || session.SubjectID == "" {
		return errors.New("session token and subject are required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token_hash, subject_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		HashSessionToken(session.ID), session.SubjectID, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session for subject %s: %w", session.SubjectID, err)
	}
	return nil
}

// FindByID はトークンに対応する有効なセッションを返す。
// 空のトークン、未登録、期限切れの場合はnilを返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}

	session := &model.Session{ID: token}
	err := r.db.QueryRowContext(ctx,
		`SELECT subject_id, expires_at, created_at
		 FROM sessions
		 WHERE token_hash = $1 AND expires_at > now()`,
		HashSessionToken(token),
	).Scan(&session.SubjectID, &session.ExpiresAt, &session.CreatedAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	return session, nil
}

// DeleteByID はトークンに対応するセッションを削除する。存在しなくてもエラーにしない。
func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE token_hash = $1`,
		HashSessionToken(token),
	); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// DeleteBySubjectID はsubjectの全セッションを失効させる。ユーザー削除時に使う。
func (r *PostgresSessionRepo) DeleteBySubjectID(ctx context.Context, subjectID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE subject_id = $1`,
		subjectID,
	); err != nil {
		return fmt.Errorf("failed to revoke sessions of subject %s: %w", subjectID, err)
	}
	return nil
}

var _ SessionRepository = (*PostgresSessionRepo)(nil)
