package permission

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/eduportal-backend/internal/model"
)

func args(r *model.Role, userID string, params map[string]string) Args {
	return Args{Role: r, UserID: userID, Params: params}
}

func id(v string) map[string]string { return map[string]string{"id": v} }

func TestPredicateCatalog(t *testing.T) {
	p := NewPredicates(newFakeFacts())
	for _, name := range []string{
		PredicateSelfOrAdmin, PredicateFormRead, PredicateFormEdit, PredicateTaskRead, PredicateTaskEdit,
		PredicateStudentCreate, PredicateStudentAccess, PredicateUserUpdate, PredicateUserRoleChange,
		PredicateAuthenticated,
	} {
		pred, err := p.ByName(name)
		require.NoError(t, err, name)
		assert.NotNil(t, pred)
	}

	_, err := p.ByName("is_friday")
	assert.ErrorIs(t, err, ErrUnknownPredicate)
	assert.Panics(t, func() { p.Rule("is_friday") })
}

func TestSelfOrAdmin(t *testing.T) {
	pred := NewPredicates(newFakeFacts()).SelfOrAdmin("id")
	ctx := context.Background()

	tests := []struct {
		name string
		args Args
		want bool
	}{
		{"self", args(role(model.RoleTeacher), "42", id("42")), true},
		{"other", args(role(model.RoleTeacher), "7", id("42")), false},
		{"admin", args(role(model.RoleAdmin), "7", id("42")), true},
		{"root", args(role(model.RoleRoot), "7", id("42")), true},
		{"no role", args(nil, "42", id("42")), false},
		{"empty ids never match", args(role(model.RoleTeacher), "", id("")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := pred(ctx, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestFormAccess(t *testing.T) {
	facts := newFakeFacts()
	facts.formCreators["f1"] = "owner"
	facts.formGrants[userGrantKey("f1", "reader")] = model.AccessRead
	facts.formGrants[userGrantKey("f1", "editor")] = model.AccessEdit
	facts.formGrants[roleGrantKey("f1", role(model.RoleCandidate).ID)] = model.AccessRead

	p := NewPredicates(facts)
	read, edit := p.FormAccess(model.AccessRead), p.FormAccess(model.AccessEdit)
	ctx := context.Background()

	tests := []struct {
		name     string
		args     Args
		wantRead bool
		wantEdit bool
	}{
		{"creator", args(role(model.RoleTeacher), "owner", id("f1")), true, true},
		{"admin", args(role(model.RoleAdmin), "x", id("f1")), true, true},
		{"manager reads", args(role(model.RoleManager), "x", id("f1")), true, false},
		{"class teacher reads", args(role(model.RoleClassTeacher), "x", id("f1")), true, false},
		{"teacher without grant", args(role(model.RoleTeacher), "x", id("f1")), false, false},
		{"user read grant", args(role(model.RoleTeacher), "reader", id("f1")), true, false},
		{"user edit grant", args(role(model.RoleTeacher), "editor", id("f1")), true, true},
		{"role read grant", args(role(model.RoleCandidate), "y", id("f1")), true, false},
		{"admin on missing form", args(role(model.RoleAdmin), "x", id("nope")), true, true},
		{"manager on missing form", args(role(model.RoleManager), "x", id("nope")), true, false},
		{"teacher on missing form", args(role(model.RoleTeacher), "x", id("nope")), false, false},
		{"no role", args(nil, "owner", id("f1")), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := read(ctx, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRead, ok, "read")

			ok, err = edit(ctx, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEdit, ok, "edit")
		})
	}
}

func TestTaskAccess(t *testing.T) {
	facts := newFakeFacts()
	facts.taskCreators["t1"] = "owner"
	facts.taskGrants[userGrantKey("t1", "assignee")] = model.AccessRead

	p := NewPredicates(facts)
	ctx := context.Background()

	ok, err := p.TaskAccess(model.AccessRead)(ctx, args(role(model.RoleCandidate), "assignee", id("t1")))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.TaskAccess(model.AccessEdit)(ctx, args(role(model.RoleCandidate), "assignee", id("t1")))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.TaskAccess(model.AccessEdit)(ctx, args(role(model.RoleTeacher), "owner", id("t1")))
	require.NoError(t, err)
	assert.True(t, ok)

	facts.err = errors.New("timeout")
	_, err = p.TaskAccess(model.AccessRead)(ctx, args(role(model.RoleCandidate), "assignee", id("t1")))
	assert.ErrorIs(t, err, facts.err)

	// Admins never touch the store.
	calls := facts.calls
	ok, err = p.TaskAccess(model.AccessEdit)(ctx, args(role(model.RoleAdmin), "x", id("gone")))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, calls, facts.calls)
}

func TestStudentCreate(t *testing.T) {
	facts := newFakeFacts()
	facts.userRegions["m-north"] = "north"
	p := NewPredicates(facts)
	ctx := context.Background()

	tests := []struct {
		name string
		args Args
		want bool
	}{
		{"admin", args(role(model.RoleAdmin), "a", nil), true},
		{"root", args(role(model.RoleRoot), "r", nil), true},
		{"manager with region", args(role(model.RoleManager), "m-north", nil), true},
		{"manager without region", args(role(model.RoleManager), "m-none", nil), false},
		{"teacher", args(role(model.RoleTeacher), "m-north", nil), false},
		{"no role", args(nil, "m-north", nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := p.StudentCreate(ctx, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestStudentAccess(t *testing.T) {
	facts := newFakeFacts()
	facts.userRegions["m-north"] = "north"
	facts.studentRegions["s-north"] = "north"
	facts.studentRegions["s-south"] = "south"
	facts.studentRegions["s-none"] = ""
	facts.links["t1|s-south"] = true
	facts.links["c1|s-north"] = true
	p := NewPredicates(facts)
	ctx := context.Background()

	tests := []struct {
		name string
		args Args
		want bool
	}{
		{"admin", args(role(model.RoleAdmin), "a", id("s-south")), true},
		{"manager same region", args(role(model.RoleManager), "m-north", id("s-north")), true},
		{"manager other region", args(role(model.RoleManager), "m-north", id("s-south")), false},
		{"manager vs student without region", args(role(model.RoleManager), "m-north", id("s-none")), false},
		{"manager without region", args(role(model.RoleManager), "m-none", id("s-none")), false},
		{"manager missing student", args(role(model.RoleManager), "m-north", id("ghost")), false},
		{"linked teacher", args(role(model.RoleTeacher), "t1", id("s-south")), true},
		{"unlinked teacher", args(role(model.RoleTeacher), "t1", id("s-north")), false},
		{"linked candidate", args(role(model.RoleCandidate), "c1", id("s-north")), true},
		{"linked class teacher", args(role(model.RoleClassTeacher), "t1", id("s-south")), true},
		{"new registrant", args(role(model.RoleNewRegistrant), "t1", id("s-south")), false},
		{"missing param", args(role(model.RoleTeacher), "t1", nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := p.StudentAccess(ctx, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestUserUpdateAndRoleChange(t *testing.T) {
	facts := newFakeFacts()
	facts.userRoles["admin-2"] = role(model.RoleAdmin)
	facts.userRoles["teacher-2"] = role(model.RoleTeacher)
	facts.userRoles["root-2"] = role(model.RoleRoot)
	p := NewPredicates(facts)
	ctx := context.Background()

	tests := []struct {
		name       string
		args       Args
		wantUpdate bool
		wantChange bool
	}{
		{"self", args(role(model.RoleTeacher), "me", id("me")), true, false},
		{"admin over teacher", args(role(model.RoleAdmin), "admin-1", id("teacher-2")), true, true},
		{"admin over equal admin", args(role(model.RoleAdmin), "admin-1", id("admin-2")), true, true},
		{"admin over root", args(role(model.RoleAdmin), "admin-1", id("root-2")), false, false},
		{"teacher over admin", args(role(model.RoleTeacher), "t", id("admin-2")), false, false},
		{"target without role", args(role(model.RoleAdmin), "admin-1", id("ghost")), false, false},
		{"no role", args(nil, "me", id("me")), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := p.UserUpdate(ctx, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUpdate, ok, "update")

			ok, err = p.UserRoleChange(ctx, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChange, ok, "role change")
		})
	}
}

func TestAuthenticated(t *testing.T) {
	ok, _ := Authenticated(context.Background(), args(role(model.RoleNewRegistrant), "u", nil))
	assert.True(t, ok)
	ok, _ = Authenticated(context.Background(), args(nil, "u", nil))
	assert.False(t, ok)
}
