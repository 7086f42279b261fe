package permission

import (
	"sort"

	"github.com/stemsi/eduportal-backend/internal/model"
)

// HasEqualOrHigherPrivilege reports whether caller ranks at or above target.
// Lower Order means more privilege.
func HasEqualOrHigherPrivilege(caller, target *model.Role) bool {
	if caller == nil || target == nil {
		return false
	}
	return caller.Order <= target.Order
}

// IsAdmin reports whether role is root or admin.
func IsAdmin(role *model.Role) bool {
	return InRoles(role, model.RoleRoot, model.RoleAdmin)
}

// InRoles reports whether role's name is one of names. A nil role is in no set.
func InRoles(role *model.Role, names ...model.RoleName) bool {
	if role == nil {
		return false
	}
	for _, n := range names {
		if role.Name == n {
			return true
		}
	}
	return false
}

// RoleSet is an ordered, request-scoped list of roles, most privileged first.
type RoleSet struct {
	roles []model.Role
}

// NewRoleSet copies roles and sorts them by Order, then name.
func NewRoleSet(roles []model.Role) RoleSet {
	sorted := append([]model.Role(nil), roles...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Order != sorted[j].Order {
			return sorted[i].Order < sorted[j].Order
		}
		return sorted[i].Name < sorted[j].Name
	})
	return RoleSet{roles: sorted}
}

// Roles returns a copy of the roles in privilege order.
func (s RoleSet) Roles() []model.Role {
	return append([]model.Role(nil), s.roles...)
}

// ByName returns the role called name.
func (s RoleSet) ByName(name model.RoleName) (model.Role, bool) {
	for _, r := range s.roles {
		if r.Name == name {
			return r, true
		}
	}
	return model.Role{}, false
}

// AtOrBelow returns the roles caller may assign or preview: those whose
// Order is not lower than the caller's.
func (s RoleSet) AtOrBelow(caller *model.Role) []model.Role {
	if caller == nil {
		return nil
	}
	out := make([]model.Role, 0, len(s.roles))
	for _, r := range s.roles {
		if r.Order >= caller.Order {
			out = append(out, r)
		}
	}
	return out
}

// Missing returns the names in want that have no role in s.
func (s RoleSet) Missing(want []model.RoleName) []model.RoleName {
	var out []model.RoleName
	for _, n := range want {
		if _, ok := s.ByName(n); !ok {
			out = append(out, n)
		}
	}
	return out
}

// Names returns the role names in privilege order.
func (s RoleSet) Names() []model.RoleName {
	out := make([]model.RoleName, len(s.roles))
	for i, r := range s.roles {
		out[i] = r.Name
	}
	return out
}
