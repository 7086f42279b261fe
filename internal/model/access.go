package model

// AccessType is the level of a form or task grant.
type AccessType string

const (
	AccessRead AccessType = "read"
	AccessEdit AccessType = "edit"
)

// Satisfies reports whether a grant of level a covers an operation that
// requires level required. Edit implies read.
func (a AccessType) Satisfies(required AccessType) bool {
	switch a {
	case AccessEdit:
		return required == AccessEdit || required == AccessRead
	case AccessRead:
		return required == AccessRead
	default:
		return false
	}
}
