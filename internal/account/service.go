// Package account はIdPアカウントとプロフィールの作成・削除・メール変更を調整する。
// 2つのストアにまたがる操作は逐次実行し、途中失敗時は補償処理を1回だけ試みる。
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/fitadmin/internal/identity"
	"github.com/hitoshi/fitadmin/internal/metrics"
	"github.com/hitoshi/fitadmin/internal/model"
	"github.com/hitoshi/fitadmin/internal/repository"
)

// 操作名。警告ログとメトリクスのラベルに使う。
const (
	OpCreateUser = "create_user"
	OpRegister   = "register"
	OpUpdateUser = "update_user"
	OpDeleteUser = "delete_user"
)

// SessionRevoker はsubjectのセッションを一括削除する。
type SessionRevoker interface {
	DeleteBySubjectID(ctx context.Context, subjectID string) error
}

// CreateUserInput は管理者によるユーザー作成の入力。
type CreateUserInput struct {
	Name     string
	LastName string
	Email    string
	Password string
	Role     model.Role
	Age      *int64
	Weight   *float64
}

// RegisterInput は自己登録の入力。ロールは常にclientになる。
type RegisterInput struct {
	Name         string
	LastName     string
	Email        string
	Password     string
	ConfPassword string
	Age          *int64
	Weight       *float64
}

// Service はIdPとプロフィールストアをまたぐユーザー操作を提供する。
type Service struct {
	profiles   repository.ResourceRepository[model.Profile]
	identities identity.Provider
	sessions   SessionRevoker
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
}

// NewService はServiceを生成する。sessionsはnilでもよい。
func NewService(
	profiles repository.ResourceRepository[model.Profile],
	identities identity.Provider,
	sessions SessionRevoker,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if mc == nil {
		mc = metrics.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		profiles:   profiles,
		identities: identities,
		sessions:   sessions,
		metrics:    mc,
		logger:     logger,
	}
}

// ListUsers はプロフィールを作成日時の降順で返す。
func (s *Service) ListUsers(ctx context.Context) ([]*model.Profile, error) {
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, model.AsStoreError(err)
	}
	return profiles, nil
}

// CreateUser はIdPアカウント、プロフィールの順に作成する。
// プロフィール作成に失敗した場合は作成済みのアカウントを1回だけ削除し、
// 元の失敗をProfileCreationFailedとして返す。
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*model.Profile, error) {
	return s.createUser(ctx, OpCreateUser, in)
}

// Register は自己登録を行う。パスワード確認が一致しない場合はPasswordMismatchを返す。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.Profile, error) {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(in.LastName) == "" {
		missing = append(missing, "last_name")
	}
	if in.Age == nil {
		missing = append(missing, "age")
	}
	if in.Weight == nil {
		missing = append(missing, "weight")
	}
	if strings.TrimSpace(in.Email) == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if in.ConfPassword == "" {
		missing = append(missing, "conf_password")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldsError(missing)
	}
	if in.Password != in.ConfPassword {
		return nil, model.NewPasswordMismatchError()
	}

	return s.createUser(ctx, OpRegister, CreateUserInput{
		Name:     in.Name,
		LastName: in.LastName,
		Email:    in.Email,
		Password: in.Password,
		Role:     model.RoleClient,
		Age:      in.Age,
		Weight:   in.Weight,
	})
}

func (s *Service) createUser(ctx context.Context, op string, in CreateUserInput) (*model.Profile, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)

	var missing []string
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.LastName == "" {
		missing = append(missing, "last_name")
	}
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if in.Role == "" {
		missing = append(missing, "role")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldsError(missing)
	}
	if !in.Role.Valid() {
		return nil, model.NewInvalidFieldError("role", "debe ser admin o client")
	}

	payload := model.Payload{
		"name":      in.Name,
		"last_name": in.LastName,
		"email":     in.Email,
		"role":      string(in.Role),
	}
	if in.Age != nil {
		payload["age"] = *in.Age
	}
	if in.Weight != nil {
		payload["weight"] = *in.Weight
	}
	// 列の制約違反はIdPアカウントを作る前に弾く
	if err := repository.ProfilesTable.Validate(payload); err != nil {
		return nil, err
	}

	account, err := s.identities.CreateAccount(ctx, in.Email, in.Password)
	if err != nil {
		s.logger.Warn("identity creation failed",
			slog.String("operation", op),
			slog.String("email", in.Email),
			slog.String("error", err.Error()),
		)
		return nil, model.NewIdentityCreationFailedError(err)
	}

	payload["auth_id"] = account.SubjectID
	profile, err := s.profiles.Create(ctx, payload)
	if err != nil {
		s.logger.Error("profile creation failed, compensating",
			slog.String("operation", op),
			slog.String("subject_id", account.SubjectID),
			slog.String("error", err.Error()),
		)
		s.compensate(ctx, op, account.SubjectID)
		return nil, model.NewProfileCreationFailedError(err)
	}

	s.logger.Info("user created",
		slog.String("operation", op),
		slog.String("profile_id", profile.ID),
		slog.String("subject_id", account.SubjectID),
		slog.String("role", string(profile.Role)),
	)
	return profile, nil
}

// compensate は作成済みのIdPアカウントを削除する。再試行はしない。
func (s *Service) compensate(ctx context.Context, op, subjectID string) {
	if err := s.identities.DeleteAccount(ctx, subjectID); err != nil {
		s.metrics.RecordCompensation(op, metrics.CompensationFailed)
		s.warn(&model.PartialConsistencyWarning{
			Kind:      model.WarningOrphanedIdentity,
			Operation: op,
			SubjectID: subjectID,
			Err:       err,
		})
		return
	}
	s.metrics.RecordCompensation(op, metrics.CompensationSucceeded)
	s.logger.Info("compensation succeeded",
		slog.String("operation", op),
		slog.String("subject_id", subjectID),
	)
}

// UpdateUser はプロフィールを部分更新する。
// 適用されたフィールドにemailが含まれる場合は、コミット後にIdPのメールアドレスも更新する。
// IdP側の失敗は警告として記録し、更新結果は成功として返す。
func (s *Service) UpdateUser(ctx context.Context, id string, payload model.Payload) (*model.Profile, error) {
	cleaned := normalizeEmail(payload.Clean())

	profile, err := s.profiles.Update(ctx, id, cleaned)
	if err != nil {
		return nil, model.AsStoreError(err)
	}

	if email, ok := cleaned.String("email"); ok {
		if err := s.identities.UpdateEmail(ctx, profile.AuthID, email); err != nil {
			s.warn(&model.PartialConsistencyWarning{
				Kind:      model.WarningUnsyncedEmail,
				Operation: OpUpdateUser,
				SubjectID: profile.AuthID,
				Err:       err,
			})
		}
	}

	return profile, nil
}

// normalizeEmail はemailの前後の空白を除去する。空白のみの値はキーごと取り除き、必須列を上書きさせない。
// プロフィールとIdPには同じ値を渡す。
func normalizeEmail(p model.Payload) model.Payload {
	raw, ok := p["email"].(string)
	if !ok {
		return p
	}
	if email := strings.TrimSpace(raw); email != "" {
		p["email"] = email
	} else {
		delete(p, "email")
	}
	return p
}

// DeleteUser はプロフィールを削除し、続けてIdPアカウントとセッションを削除する。
// プロフィール削除に失敗した場合はIdPアカウントに触れない。
// 後続の削除失敗は警告として記録し、操作自体は成功とする。
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	profile, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		return model.NewStoreError(fmt.Errorf("failed to find profile: %w", err))
	}
	if profile == nil {
		return model.NewNotFoundError("usuario", id)
	}

	if err := s.profiles.Delete(ctx, id); err != nil {
		return model.AsStoreError(err)
	}

	subjectID := profile.AuthID
	if err := s.identities.DeleteAccount(ctx, subjectID); err != nil {
		if errors.Is(err, identity.ErrAccountNotFound) {
			s.logger.Info("identity already absent",
				slog.String("operation", OpDeleteUser),
				slog.String("subject_id", subjectID),
			)
		} else {
			s.warn(&model.PartialConsistencyWarning{
				Kind:      model.WarningOrphanedIdentity,
				Operation: OpDeleteUser,
				SubjectID: subjectID,
				Err:       err,
			})
		}
	}

	if s.sessions != nil {
		if err := s.sessions.DeleteBySubjectID(ctx, subjectID); err != nil {
			s.warn(&model.PartialConsistencyWarning{
				Kind:      model.WarningStaleSessions,
				Operation: OpDeleteUser,
				SubjectID: subjectID,
				Err:       err,
			})
		}
	}

	s.logger.Info("user deleted",
		slog.String("profile_id", id),
		slog.String("subject_id", subjectID),
	)
	return nil
}

// warn は不整合警告をログとメトリクスに記録する。
func (s *Service) warn(w *model.PartialConsistencyWarning) {
	s.metrics.RecordConsistencyWarning(string(w.Kind))
	s.logger.Warn("partial consistency warning", w.LogArgs()...)
}
