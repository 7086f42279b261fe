package permission

import (
	"net/http"

	"github.com/stemsi/eduportal-backend/internal/model"
)

var (
	rolesRootOnly = []model.RoleName{model.RoleRoot}
	rolesAdmins   = []model.RoleName{model.RoleRoot, model.RoleAdmin}
	rolesStaff    = []model.RoleName{
		model.RoleRoot, model.RoleAdmin, model.RoleManager, model.RoleClassTeacher,
	}
	rolesAuthors = []model.RoleName{
		model.RoleRoot, model.RoleAdmin, model.RoleManager, model.RoleClassTeacher, model.RoleTeacher,
	}
	rolesMembers = []model.RoleName{
		model.RoleRoot, model.RoleAdmin, model.RoleManager, model.RoleClassTeacher,
		model.RoleTeacher, model.RoleCandidate,
	}
)

// DefaultGroups returns the built-in permission table of the portal API.
// Entry order matters: it breaks ties between equally specific templates.
func DefaultGroups(p *Predicates) []Group {
	return []Group{
		{Name: "users", Operations: []Entry{
			{Operation: "list", FeatureName: "User management", Description: "List all users",
				Method: http.MethodGet, Path: "/api/users", Rule: RoleListRule{Roles: rolesStaff}},
			{Operation: "create", FeatureName: "User management", Description: "Create a user",
				Method: http.MethodPost, Path: "/api/users", Rule: RoleListRule{Roles: rolesAdmins}},
			{Operation: "get", FeatureName: "User profile", Description: "View a user; self or admins",
				Method: http.MethodGet, Path: "/api/users/[id]", Rule: p.Rule(PredicateSelfOrAdmin)},
			{Operation: "update", FeatureName: "User profile", Description: "Update self, or a user of equal or lower rank",
				Method: http.MethodPut, Path: "/api/users/[id]", Rule: p.Rule(PredicateUserUpdate, model.RoleRoot)},
			{Operation: "delete", FeatureName: "User management", Description: "Delete a user",
				Method: http.MethodDelete, Path: "/api/users/[id]", Rule: RoleListRule{Roles: rolesAdmins}},
			{Operation: "change_role", FeatureName: "User management", Description: "Change another user's role",
				Method: http.MethodPut, Path: "/api/users/[id]/role", Rule: p.Rule(PredicateUserRoleChange)},
		}},
		{Name: "roles", Operations: []Entry{
			{Operation: "list", FeatureName: "Roles", Description: "List role options",
				Method: http.MethodGet, Path: "/api/roles", Rule: p.Rule(PredicateAuthenticated)},
			{Operation: "get", FeatureName: "Roles", Description: "View a role",
				Method: http.MethodGet, Path: "/api/roles/[id]", Rule: p.Rule(PredicateAuthenticated)},
			{Operation: "create", FeatureName: "Role management", Description: "Create a role",
				Method: http.MethodPost, Path: "/api/roles", Rule: RoleListRule{Roles: rolesRootOnly}},
			{Operation: "update", FeatureName: "Role management", Description: "Rename, recolor or reorder a role",
				Method: http.MethodPut, Path: "/api/roles/[id]", Rule: RoleListRule{Roles: rolesRootOnly}},
			{Operation: "delete", FeatureName: "Role management", Description: "Delete a role",
				Method: http.MethodDelete, Path: "/api/roles/[id]", Rule: RoleListRule{Roles: rolesRootOnly}},
		}},
		{Name: "forms", Operations: []Entry{
			{Operation: "list", FeatureName: "Forms", Description: "List forms visible to the caller",
				Method: http.MethodGet, Path: "/api/forms", Rule: RoleListRule{Roles: rolesMembers}},
			{Operation: "create", FeatureName: "Form builder", Description: "Create a form",
				Method: http.MethodPost, Path: "/api/forms", Rule: RoleListRule{Roles: rolesAuthors}},
			{Operation: "get", FeatureName: "Forms", Description: "View a form",
				Method: http.MethodGet, Path: "/api/forms/[id]", Rule: p.Rule(PredicateFormRead)},
			{Operation: "update", FeatureName: "Form builder", Description: "Edit a form",
				Method: http.MethodPut, Path: "/api/forms/[id]", Rule: p.Rule(PredicateFormEdit)},
			{Operation: "delete", FeatureName: "Form builder", Description: "Delete a form",
				Method: http.MethodDelete, Path: "/api/forms/[id]", Rule: p.Rule(PredicateFormEdit)},
			{Operation: "submit", FeatureName: "Form responses", Description: "Submit a response",
				Method: http.MethodPost, Path: "/api/forms/[id]/responses", Rule: p.Rule(PredicateFormRead)},
			{Operation: "responses", FeatureName: "Form responses", Description: "List responses",
				Method: http.MethodGet, Path: "/api/forms/[id]/responses", Rule: p.Rule(PredicateFormRead)},
			{Operation: "responses_overview", FeatureName: "Form responses", Description: "Aggregated response overview",
				Method: http.MethodGet, Path: "/api/forms/[id]/responses/overview", Rule: p.Rule(PredicateFormRead)},
			{Operation: "response_get", FeatureName: "Form responses", Description: "View one response",
				Method: http.MethodGet, Path: "/api/forms/[id]/responses/[responseId]", Rule: p.Rule(PredicateFormRead)},
			{Operation: "response_delete", FeatureName: "Form responses", Description: "Delete one response",
				Method: http.MethodDelete, Path: "/api/forms/[id]/responses/[responseId]", Rule: p.Rule(PredicateFormEdit)},
			{Operation: "access_list", FeatureName: "Form sharing", Description: "List form grants",
				Method: http.MethodGet, Path: "/api/forms/[id]/access", Rule: p.Rule(PredicateFormEdit)},
			{Operation: "access_update", FeatureName: "Form sharing", Description: "Replace form grants",
				Method: http.MethodPut, Path: "/api/forms/[id]/access", Rule: p.Rule(PredicateFormEdit)},
		}},
		{Name: "tasks", Operations: []Entry{
			{Operation: "list", FeatureName: "Tasks", Description: "List tasks visible to the caller",
				Method: http.MethodGet, Path: "/api/tasks", Rule: RoleListRule{Roles: rolesMembers}},
			{Operation: "create", FeatureName: "Task assignment", Description: "Create a task",
				Method: http.MethodPost, Path: "/api/tasks", Rule: RoleListRule{Roles: rolesAuthors}},
			{Operation: "get", FeatureName: "Tasks", Description: "View a task",
				Method: http.MethodGet, Path: "/api/tasks/[id]", Rule: p.Rule(PredicateTaskRead)},
			{Operation: "update", FeatureName: "Task assignment", Description: "Edit a task",
				Method: http.MethodPut, Path: "/api/tasks/[id]", Rule: p.Rule(PredicateTaskEdit)},
			{Operation: "delete", FeatureName: "Task assignment", Description: "Delete a task",
				Method: http.MethodDelete, Path: "/api/tasks/[id]", Rule: p.Rule(PredicateTaskEdit)},
			{Operation: "submit", FeatureName: "Task submissions", Description: "Submit work for a task",
				Method: http.MethodPost, Path: "/api/tasks/[id]/submissions", Rule: p.Rule(PredicateTaskRead)},
			{Operation: "submissions", FeatureName: "Task submissions", Description: "List submissions",
				Method: http.MethodGet, Path: "/api/tasks/[id]/submissions", Rule: p.Rule(PredicateTaskEdit)},
			{Operation: "assignees", FeatureName: "Task assignment", Description: "Replace task assignees",
				Method: http.MethodPut, Path: "/api/tasks/[id]/assignees", Rule: p.Rule(PredicateTaskEdit)},
		}},
		{Name: "students", Operations: []Entry{
			{Operation: "list", FeatureName: "Students", Description: "List students in scope",
				Method: http.MethodGet, Path: "/api/students", Rule: RoleListRule{Roles: rolesMembers}},
			{Operation: "create", FeatureName: "Students", Description: "Register a student",
				Method: http.MethodPost, Path: "/api/students", Rule: p.Rule(PredicateStudentCreate)},
			{Operation: "get", FeatureName: "Students", Description: "View a student",
				Method: http.MethodGet, Path: "/api/students/[id]", Rule: p.Rule(PredicateStudentAccess)},
			{Operation: "update", FeatureName: "Students", Description: "Edit a student",
				Method: http.MethodPut, Path: "/api/students/[id]", Rule: p.Rule(PredicateStudentAccess)},
			{Operation: "delete", FeatureName: "Students", Description: "Delete a student",
				Method: http.MethodDelete, Path: "/api/students/[id]", Rule: RoleListRule{Roles: rolesAdmins}},
			{Operation: "teachers", FeatureName: "Teacher assignment", Description: "List a student's teachers",
				Method: http.MethodGet, Path: "/api/students/[id]/teachers", Rule: p.Rule(PredicateStudentAccess)},
		}},
		{Name: "teacher_students", Operations: []Entry{
			{Operation: "list", FeatureName: "Teacher assignment", Description: "List teacher-student links",
				Method: http.MethodGet, Path: "/api/teacher-students", Rule: RoleListRule{Roles: rolesStaff}},
			{Operation: "assign", FeatureName: "Teacher assignment", Description: "Link a teacher to a student",
				Method: http.MethodPost, Path: "/api/teacher-students", Rule: RoleListRule{Roles: rolesStaff}},
			{Operation: "unassign", FeatureName: "Teacher assignment", Description: "Remove a link",
				Method: http.MethodDelete, Path: "/api/teacher-students/[id]", Rule: RoleListRule{Roles: rolesStaff}},
		}},
		{Name: "drive", Operations: []Entry{
			{Operation: "list", FeatureName: "File manager", Description: "Browse the shared drive",
				Method: http.MethodGet, Path: "/api/drive", Rule: RoleListRule{Roles: rolesMembers}},
			{Operation: "upload", FeatureName: "File manager", Description: "Upload a file",
				Method: http.MethodPost, Path: "/api/drive/upload", Rule: RoleListRule{Roles: rolesAuthors}},
			{Operation: "get", FeatureName: "File manager", Description: "Download a file",
				Method: http.MethodGet, Path: "/api/drive/[fileId]", Rule: RoleListRule{Roles: rolesMembers}},
			{Operation: "rename", FeatureName: "File manager", Description: "Rename or move a file",
				Method: http.MethodPatch, Path: "/api/drive/[fileId]", Rule: RoleListRule{Roles: rolesStaff}},
			{Operation: "delete", FeatureName: "File manager", Description: "Delete a file",
				Method: http.MethodDelete, Path: "/api/drive/[fileId]", Rule: RoleListRule{Roles: rolesStaff}},
		}},
		{Name: "dashboard", Operations: []Entry{
			{Operation: "stats", FeatureName: "Dashboard", Description: "Summary counters",
				Method: http.MethodGet, Path: "/api/dashboard/stats", Rule: RoleListRule{Roles: rolesStaff}},
		}},
		{Name: "account", Operations: []Entry{
			{Operation: "me", FeatureName: "Account", Description: "Resolved identity of the caller",
				Method: http.MethodGet, Path: "/api/me", Rule: p.Rule(PredicateAuthenticated)},
			{Operation: "permissions", FeatureName: "Account", Description: "Permission table",
				Method: http.MethodGet, Path: "/api/permissions", Rule: RoleListRule{Roles: rolesAdmins}},
		}},
	}
}
