package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/permission"
)

// ResolveEffectiveRole applies a requested preview role to the caller's real
// role. An empty previewName keeps the real role. A preview that names an
// unknown role, would escalate privilege, or cannot be looked up is rejected
// and the real role is used.
func (s *RoleService) ResolveEffectiveRole(ctx context.Context, realRole *model.Role, previewName string) permission.EffectiveRole {
	if previewName == "" {
		return permission.RealRole(realRole)
	}

	preview, err := s.RoleByName(ctx, model.RoleName(previewName))
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("preview_role", previewName).Msg("preview role lookup failed")
		return permission.RejectPreview(realRole, permission.PreviewReasonLookupFailed)
	}
	return permission.ApplyPreview(realRole, preview)
}
