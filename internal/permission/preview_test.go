package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stemsi/eduportal-backend/internal/model"
)

func TestApplyPreview(t *testing.T) {
	tests := []struct {
		name     string
		real     *model.Role
		preview  *model.Role
		outcome  PreviewOutcome
		wantRole model.RoleName
		reason   string
	}{
		{"downgrade", role(model.RoleAdmin), role(model.RoleTeacher), PreviewApplied, model.RoleTeacher, ""},
		{"same role", role(model.RoleTeacher), role(model.RoleTeacher), PreviewApplied, model.RoleTeacher, ""},
		{"escalation", role(model.RoleTeacher), role(model.RoleAdmin), PreviewRejected, model.RoleTeacher, PreviewReasonEscalation},
		{"unknown role", role(model.RoleManager), nil, PreviewRejected, model.RoleManager, PreviewReasonUnknownRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eff := ApplyPreview(tt.real, tt.preview)
			assert.Equal(t, tt.outcome, eff.Outcome)
			assert.Equal(t, tt.wantRole, eff.Role.Name)
			assert.Equal(t, tt.real.Name, eff.Original.Name)
			assert.Equal(t, tt.reason, eff.Reason)
			assert.Equal(t, tt.outcome == PreviewApplied, eff.Impersonating())
		})
	}
}

func TestRealRole(t *testing.T) {
	eff := RealRole(role(model.RoleCandidate))
	assert.Equal(t, PreviewNone, eff.Outcome)
	assert.Same(t, eff.Role, eff.Original)
	assert.False(t, eff.Impersonating())
}
