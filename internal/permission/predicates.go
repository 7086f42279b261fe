package permission

import (
	"context"
	"errors"
	"fmt"

	"github.com/stemsi/eduportal-backend/internal/model"
)

// ErrUnknownPredicate is returned when a predicate name is not in the catalog.
var ErrUnknownPredicate = errors.New("unknown predicate")

// FactStore is read-only access to the ownership and assignment facts that
// predicates consult. A missing record is reported as found=false (or a nil
// role) with a nil error; errors are infrastructure failures only.
type FactStore interface {
	FormCreatorID(ctx context.Context, formID string) (string, bool, error)
	FormGrant(ctx context.Context, formID, userID string, roleID int) (model.AccessType, bool, error)
	TaskCreatorID(ctx context.Context, taskID string) (string, bool, error)
	TaskGrant(ctx context.Context, taskID, userID string, roleID int) (model.AccessType, bool, error)
	StudentRegion(ctx context.Context, studentID string) (string, bool, error)
	TeacherHasStudent(ctx context.Context, teacherID, studentID string) (bool, error)
	UserRegion(ctx context.Context, userID string) (string, error)
	UserRole(ctx context.Context, userID string) (*model.Role, error)
}

// Predicate catalog names, usable from the overrides file.
const (
	PredicateSelfOrAdmin    = "self_or_admin"
	PredicateFormRead       = "form_read"
	PredicateFormEdit       = "form_edit"
	PredicateTaskRead       = "task_read"
	PredicateTaskEdit       = "task_edit"
	PredicateStudentCreate  = "student_create"
	PredicateStudentAccess  = "student_access"
	PredicateUserUpdate     = "user_update"
	PredicateUserRoleChange = "user_role_change"
	PredicateAuthenticated  = "authenticated"
)

// Predicates builds the resource-specific rules over a FactStore.
type Predicates struct {
	facts   FactStore
	catalog map[string]Predicate
}

// NewPredicates creates the predicate catalog.
func NewPredicates(facts FactStore) *Predicates {
	p := &Predicates{facts: facts}
	p.catalog = map[string]Predicate{
		PredicateSelfOrAdmin:    p.SelfOrAdmin("id"),
		PredicateFormRead:       p.FormAccess(model.AccessRead),
		PredicateFormEdit:       p.FormAccess(model.AccessEdit),
		PredicateTaskRead:       p.TaskAccess(model.AccessRead),
		PredicateTaskEdit:       p.TaskAccess(model.AccessEdit),
		PredicateStudentCreate:  p.StudentCreate,
		PredicateStudentAccess:  p.StudentAccess,
		PredicateUserUpdate:     p.UserUpdate,
		PredicateUserRoleChange: p.UserRoleChange,
		PredicateAuthenticated:  Authenticated,
	}
	return p
}

// ByName returns the catalog predicate called name.
func (p *Predicates) ByName(name string) (Predicate, error) {
	pred, ok := p.catalog[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownPredicate, name)
	}
	return pred, nil
}

// Rule wraps the catalog predicate name into a PredicateRule, optionally
// preceded by a static role list. It panics on an unknown name, which is a
// programming error in the built-in table.
func (p *Predicates) Rule(name string, roles ...model.RoleName) PredicateRule {
	pred, err := p.ByName(name)
	if err != nil {
		panic(err)
	}
	return PredicateRule{Name: name, Roles: roles, Check: pred}
}

// Authenticated allows any caller that has a role.
func Authenticated(_ context.Context, args Args) (bool, error) {
	return args.Role != nil, nil
}

// SelfOrAdmin allows the caller when the path parameter param equals their
// own id, or when they are root or admin.
func (p *Predicates) SelfOrAdmin(param string) Predicate {
	return func(_ context.Context, args Args) (bool, error) {
		if args.Role == nil {
			return false, nil
		}
		if target := args.Param(param); target != "" && target == args.UserID {
			return true, nil
		}
		return IsAdmin(args.Role), nil
	}
}

// FormAccess allows root and admin, (for read-level operations) managers
// and class teachers, and the form's creator. Everyone else needs a
// user_form_access grant for their user id or role id of at least level.
func (p *Predicates) FormAccess(level model.AccessType) Predicate {
	return func(ctx context.Context, args Args) (bool, error) {
		return p.resourceAccess(ctx, args, level, p.facts.FormCreatorID, p.facts.FormGrant)
	}
}

// TaskAccess applies the FormAccess model to tasks and user_task_access.
func (p *Predicates) TaskAccess(level model.AccessType) Predicate {
	return func(ctx context.Context, args Args) (bool, error) {
		return p.resourceAccess(ctx, args, level, p.facts.TaskCreatorID, p.facts.TaskGrant)
	}
}

type creatorLookup func(ctx context.Context, id string) (string, bool, error)
type grantLookup func(ctx context.Context, id, userID string, roleID int) (model.AccessType, bool, error)

func (p *Predicates) resourceAccess(ctx context.Context, args Args, level model.AccessType, creatorOf creatorLookup, grantOf grantLookup) (bool, error) {
	id := args.Param("id")
	if args.Role == nil || id == "" {
		return false, nil
	}

	// Privileged roles pass without a lookup; a missing resource is the
	// handler's 404.
	if IsAdmin(args.Role) {
		return true, nil
	}
	if level == model.AccessRead && InRoles(args.Role, model.RoleManager, model.RoleClassTeacher) {
		return true, nil
	}

	creator, found, err := creatorOf(ctx, id)
	if err != nil {
		return false, fmt.Errorf("load creator of %s: %w", id, err)
	}
	if !found {
		return false, nil
	}
	if creator == args.UserID {
		return true, nil
	}

	grant, ok, err := grantOf(ctx, id, args.UserID, args.Role.ID)
	if err != nil {
		return false, fmt.Errorf("load grant on %s: %w", id, err)
	}
	return ok && grant.Satisfies(level), nil
}

// StudentCreate allows root and admin. A manager may create students only
// when they have a region assigned.
func (p *Predicates) StudentCreate(ctx context.Context, args Args) (bool, error) {
	if IsAdmin(args.Role) {
		return true, nil
	}
	if !InRoles(args.Role, model.RoleManager) {
		return false, nil
	}

	region, err := p.facts.UserRegion(ctx, args.UserID)
	if err != nil {
		return false, fmt.Errorf("load region of %s: %w", args.UserID, err)
	}
	return region != "", nil
}

// StudentAccess allows root and admin; managers for students in their own
// region; class teachers, teachers and candidates for students they are
// linked to in teacher_student_access.
func (p *Predicates) StudentAccess(ctx context.Context, args Args) (bool, error) {
	if args.Role == nil {
		return false, nil
	}
	if IsAdmin(args.Role) {
		return true, nil
	}

	studentID := args.Param("id")
	if studentID == "" {
		return false, nil
	}

	switch args.Role.Name {
	case model.RoleManager:
		managerRegion, err := p.facts.UserRegion(ctx, args.UserID)
		if err != nil {
			return false, fmt.Errorf("load region of %s: %w", args.UserID, err)
		}
		if managerRegion == "" {
			return false, nil
		}
		studentRegion, found, err := p.facts.StudentRegion(ctx, studentID)
		if err != nil {
			return false, fmt.Errorf("load region of student %s: %w", studentID, err)
		}
		return found && studentRegion == managerRegion, nil

	case model.RoleClassTeacher, model.RoleTeacher, model.RoleCandidate:
		linked, err := p.facts.TeacherHasStudent(ctx, args.UserID, studentID)
		if err != nil {
			return false, fmt.Errorf("load assignment %s/%s: %w", args.UserID, studentID, err)
		}
		return linked, nil

	default:
		return false, nil
	}
}

// UserUpdate allows a caller to update their own record, or another user's
// record when the caller's role ranks at or above the target's role.
func (p *Predicates) UserUpdate(ctx context.Context, args Args) (bool, error) {
	if args.Role == nil {
		return false, nil
	}
	target := args.Param("id")
	if target == "" {
		return false, nil
	}
	if target == args.UserID {
		return true, nil
	}
	return p.outranks(ctx, args.Role, target)
}

// UserRoleChange is UserUpdate without the self exception: nobody changes
// their own role.
func (p *Predicates) UserRoleChange(ctx context.Context, args Args) (bool, error) {
	if args.Role == nil {
		return false, nil
	}
	target := args.Param("id")
	if target == "" || target == args.UserID {
		return false, nil
	}
	return p.outranks(ctx, args.Role, target)
}

func (p *Predicates) outranks(ctx context.Context, caller *model.Role, targetUserID string) (bool, error) {
	targetRole, err := p.facts.UserRole(ctx, targetUserID)
	if err != nil {
		return false, fmt.Errorf("load role of %s: %w", targetUserID, err)
	}
	if targetRole == nil {
		return false, nil
	}
	return HasEqualOrHigherPrivilege(caller, targetRole), nil
}
