package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Access control ────────────────────────────────────────────────
	ErrUnauthorized       ErrCode = "UNAUTHORIZED"
	ErrPermissionDenied   ErrCode = "PERMISSION_DENIED"
	ErrRoleLookup         ErrCode = "ROLE_LOOKUP_FAILED"
	ErrPermissionLookup   ErrCode = "PERMISSION_LOOKUP_FAILED"
	ErrSessionUnavailable ErrCode = "SESSION_UNAVAILABLE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
// The access-control messages are a client contract and must not change.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrUnauthorized:
		return "Unauthorized"
	case ErrPermissionDenied:
		return "Permission denied"
	case ErrRoleLookup:
		return "Failed to resolve user role"
	case ErrPermissionLookup:
		return "Failed to resolve permissions"
	case ErrSessionUnavailable:
		return "Failed to verify session"
	case ErrNotFound:
		return "Not found"
	case ErrInternal:
		return "Internal server error"
	default:
		return "Unexpected error"
	}
}
