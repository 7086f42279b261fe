package permission

import (
	"context"
	"fmt"

	"github.com/stemsi/eduportal-backend/internal/model"
)

// Args is the complete input of a predicate. Params holds the template
// parameters of the matched entry and is derived from Path alone.
type Args struct {
	Role   *model.Role
	UserID string
	Method string
	Path   string
	Params map[string]string
}

// Param returns the named template parameter, or "".
func (a Args) Param(name string) string { return a.Params[name] }

// Predicate decides access from Args plus read-only persisted facts. An
// error means the facts could not be read, never "deny".
type Predicate func(ctx context.Context, args Args) (bool, error)

// Decision reasons.
const (
	ReasonRole         = "role"
	ReasonPredicate    = "predicate"
	ReasonDenied       = "denied"
	ReasonUnregistered = "unregistered"
)

// Decision is the outcome of Resolve.
type Decision struct {
	Allowed bool
	Reason  string
	// Entry and Score are zero when Reason is ReasonUnregistered.
	Entry     Entry
	Score     int
	AnyMethod bool
}

// Resolver evaluates requests against a Registry. It holds no mutable state.
type Resolver struct {
	registry *Registry
}

// NewResolver creates a Resolver over registry.
func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Registry returns the underlying registry.
func (r *Resolver) Registry() *Registry { return r.registry }

// Resolve decides whether the caller may perform method on path.
//
// A request that matches no entry, even after the method-agnostic fallback,
// is allowed with ReasonUnregistered. This fail-open behavior is existing
// product behavior; callers are expected to log it.
func (r *Resolver) Resolve(ctx context.Context, method, path string, role *model.Role, userID string) (Decision, error) {
	m, ok := r.registry.Match(method, path)
	if !ok {
		return Decision{Allowed: true, Reason: ReasonUnregistered}, nil
	}

	d := Decision{Entry: m.Entry, Score: m.Score, AnyMethod: m.AnyMethod, Reason: ReasonDenied}

	switch rule := m.Entry.Rule.(type) {
	case RoleListRule:
		if hasRole(role, rule.Roles) {
			d.Allowed, d.Reason = true, ReasonRole
		}
		return d, nil

	case PredicateRule:
		if hasRole(role, rule.Roles) {
			d.Allowed, d.Reason = true, ReasonRole
			return d, nil
		}
		allowed, err := rule.Check(ctx, Args{
			Role:   role,
			UserID: userID,
			Method: method,
			Path:   path,
			Params: m.Params(path),
		})
		if err != nil {
			return d, fmt.Errorf("%s: %w", m.Entry.Key(), err)
		}
		if allowed {
			d.Allowed, d.Reason = true, ReasonPredicate
		}
		return d, nil

	default:
		return d, nil
	}
}

func hasRole(role *model.Role, names []model.RoleName) bool {
	return InRoles(role, names...)
}
