package model

import (
	"fmt"
	"log/slog"
)

// WarningKind は部分的不整合の種類を表す。
type WarningKind string

const (
	// WarningOrphanedIdentity はプロフィールを持たないIdPアカウントが残ったことを示す。
	WarningOrphanedIdentity WarningKind = "orphaned_identity"
	// WarningUnsyncedEmail はプロフィールとIdPのメールアドレスが食い違っていることを示す。
	WarningUnsyncedEmail WarningKind = "unsynced_email"
	// WarningStaleSessions は削除済みユーザーのセッションが残ったことを示す。
	WarningStaleSessions WarningKind = "stale_sessions"
)

// PartialConsistencyWarning は補償処理や同期処理の失敗を表す。
// ログとメトリクスにのみ記録し、リクエストは失敗させない。
type PartialConsistencyWarning struct {
	Kind      WarningKind
	Operation string
	SubjectID string
	Err       error
}

// Error はerrorインターフェースを実装する。
func (w *PartialConsistencyWarning) Error() string {
	return fmt.Sprintf("partial consistency warning (%s) during %s for subject %s: %v",
		w.Kind, w.Operation, w.SubjectID, w.Err)
}

// Unwrap は内部原因を返す。
func (w *PartialConsistencyWarning) Unwrap() error {
	return w.Err
}

// LogArgs はslogに渡す属性を返す。
func (w *PartialConsistencyWarning) LogArgs() []any {
	args := []any{
		slog.String("kind", string(w.Kind)),
		slog.String("operation", w.Operation),
		slog.String("subject_id", w.SubjectID),
	}
	if w.Err != nil {
		args = append(args, slog.String("error", w.Err.Error()))
	}
	return args
}
