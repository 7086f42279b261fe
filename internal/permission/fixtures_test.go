package permission

import (
	"context"
	"strconv"

	"github.com/stemsi/eduportal-backend/internal/model"
)

var testRoles = []model.Role{
	{ID: 1, Name: model.RoleRoot, Order: 0},
	{ID: 2, Name: model.RoleAdmin, Order: 1},
	{ID: 3, Name: model.RoleManager, Order: 2},
	{ID: 4, Name: model.RoleClassTeacher, Order: 3},
	{ID: 5, Name: model.RoleTeacher, Order: 4},
	{ID: 6, Name: model.RoleCandidate, Order: 5},
	{ID: 7, Name: model.RoleNewRegistrant, Order: 6},
}

func role(name model.RoleName) *model.Role {
	for _, r := range testRoles {
		if r.Name == name {
			cp := r
			return &cp
		}
	}
	panic("unknown test role " + name)
}

// fakeFacts is an in-memory FactStore. A non-nil err fails every lookup.
type fakeFacts struct {
	formCreators   map[string]string
	formGrants     map[string]model.AccessType
	taskCreators   map[string]string
	taskGrants     map[string]model.AccessType
	studentRegions map[string]string
	links          map[string]bool
	userRegions    map[string]string
	userRoles      map[string]*model.Role
	err            error
	calls          int
}

func newFakeFacts() *fakeFacts {
	return &fakeFacts{
		formCreators:   map[string]string{},
		formGrants:     map[string]model.AccessType{},
		taskCreators:   map[string]string{},
		taskGrants:     map[string]model.AccessType{},
		studentRegions: map[string]string{},
		links:          map[string]bool{},
		userRegions:    map[string]string{},
		userRoles:      map[string]*model.Role{},
	}
}

func userGrantKey(id, userID string) string { return id + "|user:" + userID }
func roleGrantKey(id string, roleID int) string { return id + "|role:" + strconv.Itoa(roleID) }

func (f *fakeFacts) grant(grants map[string]model.AccessType, id, userID string, roleID int) (model.AccessType, bool) {
	byUser, userOK := grants[userGrantKey(id, userID)]
	byRole, roleOK := grants[roleGrantKey(id, roleID)]
	switch {
	case byUser == model.AccessEdit || byRole == model.AccessEdit:
		return model.AccessEdit, true
	case userOK:
		return byUser, true
	case roleOK:
		return byRole, true
	}
	return "", false
}

func (f *fakeFacts) FormCreatorID(_ context.Context, id string) (string, bool, error) {
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	c, ok := f.formCreators[id]
	return c, ok, nil
}

func (f *fakeFacts) FormGrant(_ context.Context, id, userID string, roleID int) (model.AccessType, bool, error) {
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	g, ok := f.grant(f.formGrants, id, userID, roleID)
	return g, ok, nil
}

func (f *fakeFacts) TaskCreatorID(_ context.Context, id string) (string, bool, error) {
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	c, ok := f.taskCreators[id]
	return c, ok, nil
}

func (f *fakeFacts) TaskGrant(_ context.Context, id, userID string, roleID int) (model.AccessType, bool, error) {
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	g, ok := f.grant(f.taskGrants, id, userID, roleID)
	return g, ok, nil
}

func (f *fakeFacts) StudentRegion(_ context.Context, id string) (string, bool, error) {
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	r, ok := f.studentRegions[id]
	return r, ok, nil
}

func (f *fakeFacts) TeacherHasStudent(_ context.Context, teacherID, studentID string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.links[teacherID+"|"+studentID], nil
}

func (f *fakeFacts) UserRegion(_ context.Context, id string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.userRegions[id], nil
}

func (f *fakeFacts) UserRole(_ context.Context, id string) (*model.Role, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.userRoles[id], nil
}
