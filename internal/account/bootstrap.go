package account

import (
	"context"
	"log/slog"

	"github.com/hitoshi/fitadmin/internal/model"
)

// BootstrapAdmin は管理者が1人もいない場合に限り、初期管理者を作成する。
// 既に管理者が存在する場合はその管理者を返し、createdはfalseになる。
func (s *Service) BootstrapAdmin(ctx context.Context, in CreateUserInput) (profile *model.Profile, created bool, err error) {
	existing, err := s.profiles.FindOneBy(ctx, "role", string(model.RoleAdmin))
	if err != nil {
		return nil, false, model.AsStoreError(err)
	}
	if existing != nil {
		s.logger.Info("admin already exists, skipping bootstrap",
			slog.String("profile_id", existing.ID),
		)
		return existing, false, nil
	}

	in.Role = model.RoleAdmin
	profile, err = s.CreateUser(ctx, in)
	if err != nil {
		return nil, false, err
	}
	return profile, true, nil
}
