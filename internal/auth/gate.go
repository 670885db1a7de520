package auth

import (
	"context"
	"log/slog"

	"github.com/hitoshi/fitadmin/internal/metrics"
	"github.com/hitoshi/fitadmin/internal/model"
)

// ProfileFinder はsubject IDからプロフィールを取得する。
type ProfileFinder interface {
	FindBySubjectID(ctx context.Context, subjectID string) (*model.Profile, error)
}

// Gate はロールによる認可を行う。
// ロールはキャッシュせず、判定のたびにプロフィールストアから読み直す。
type Gate struct {
	profiles ProfileFinder
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
}

// NewGate はGateを生成する。
func NewGate(profiles ProfileFinder, mc metrics.MetricsCollector, logger *slog.Logger) *Gate {
	if mc == nil {
		mc = metrics.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{profiles: profiles, metrics: mc, logger: logger}
}

// Authorize はPrincipalが要求ロールを持つかを判定し、現在のプロフィールを返す。
// requiredが空の場合はプロフィールが存在すれば許可する。
//
//   - principalがnil: Unauthenticated
//   - 読み取り失敗またはプロフィール無し: PermissionCheckFailed
//   - ロール不一致: Forbidden
func (g *Gate) Authorize(ctx context.Context, principal *model.Principal, required model.Role) (*model.Profile, error) {
	if principal == nil || principal.SubjectID == "" {
		g.metrics.RecordAuthorization(metrics.OutcomeUnauthenticated)
		return nil, model.NewUnauthenticatedError()
	}

	profile, err := g.profiles.FindBySubjectID(ctx, principal.SubjectID)
	if err != nil {
		g.metrics.RecordAuthorization(metrics.OutcomeCheckFailed)
		g.logger.Error("role lookup failed",
			slog.String("subject_id", principal.SubjectID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPermissionCheckFailedError(err)
	}
	if profile == nil {
		g.metrics.RecordAuthorization(metrics.OutcomeCheckFailed)
		g.logger.Warn("no profile for authenticated subject",
			slog.String("subject_id", principal.SubjectID),
		)
		return nil, model.NewPermissionCheckFailedError(nil)
	}

	if required != "" && profile.Role != required {
		g.metrics.RecordAuthorization(metrics.OutcomeForbidden)
		return nil, model.NewForbiddenError()
	}

	g.metrics.RecordAuthorization(metrics.OutcomeAllowed)
	return profile, nil
}
