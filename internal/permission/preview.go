package permission

import "github.com/stemsi/eduportal-backend/internal/model"

// PreviewOutcome is the result of applying an x-preview-role request.
type PreviewOutcome string

const (
	// PreviewNone means no preview was requested; the real role applies.
	PreviewNone PreviewOutcome = "real"
	// PreviewApplied means the requested role replaced the real one.
	PreviewApplied PreviewOutcome = "preview"
	// PreviewRejected means a preview was requested but the real role applies.
	PreviewRejected PreviewOutcome = "preview-rejected"
)

// Reasons attached to a rejected preview.
const (
	PreviewReasonUnknownRole  = "unknown role"
	PreviewReasonEscalation   = "preview role outranks real role"
	PreviewReasonLookupFailed = "preview role lookup failed"
)

// EffectiveRole is the role a request is evaluated with.
type EffectiveRole struct {
	Role     *model.Role
	Original *model.Role
	Outcome  PreviewOutcome
	Reason   string
}

// Impersonating reports whether the effective role differs from the real one.
func (e EffectiveRole) Impersonating() bool { return e.Outcome == PreviewApplied }

// RealRole returns an EffectiveRole with no preview.
func RealRole(realRole *model.Role) EffectiveRole {
	return EffectiveRole{Role: realRole, Original: realRole, Outcome: PreviewNone}
}

// RejectPreview keeps the real role and records why the preview was refused.
func RejectPreview(realRole *model.Role, reason string) EffectiveRole {
	return EffectiveRole{Role: realRole, Original: realRole, Outcome: PreviewRejected, Reason: reason}
}

// ApplyPreview decides whether preview may stand in for real. Preview may
// only downgrade: its Order must be >= the real role's Order.
func ApplyPreview(realRole, preview *model.Role) EffectiveRole {
	if preview == nil {
		return RejectPreview(realRole, PreviewReasonUnknownRole)
	}
	if realRole == nil || preview.Order < realRole.Order {
		return RejectPreview(realRole, PreviewReasonEscalation)
	}
	return EffectiveRole{Role: preview, Original: realRole, Outcome: PreviewApplied}
}
