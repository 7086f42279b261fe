package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/permission"
	"github.com/stemsi/eduportal-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	roleAdmin   = &model.Role{ID: 2, Name: model.RoleAdmin, Order: 1}
	roleManager = &model.Role{ID: 3, Name: model.RoleManager, Order: 2}
	roleTeacher = &model.Role{ID: 5, Name: model.RoleTeacher, Order: 4}
)

// fakeSessions authenticates the user named in the test-only x-test-user header.
type fakeSessions struct{ err error }

func (f fakeSessions) CurrentUser(c *gin.Context) (*service.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	id := c.GetHeader("x-test-user")
	if id == "" {
		return nil, service.ErrNoSession
	}
	return &service.Session{UserID: id}, nil
}

type fakeRoles struct {
	users map[string]*model.Role
	err   error
}

func (f fakeRoles) RoleForUser(_ context.Context, userID string) (*model.Role, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[userID], nil
}

func (f fakeRoles) ResolveEffectiveRole(_ context.Context, realRole *model.Role, previewName string) permission.EffectiveRole {
	if previewName == "" {
		return permission.RealRole(realRole)
	}
	var preview *model.Role
	for _, r := range []*model.Role{roleAdmin, roleManager, roleTeacher} {
		if string(r.Name) == previewName {
			preview = r
		}
	}
	return permission.ApplyPreview(realRole, preview)
}

func testResolver(t *testing.T, checkErr error) *permission.Resolver {
	t.Helper()
	selfOnly := func(_ context.Context, a permission.Args) (bool, error) {
		if checkErr != nil {
			return false, checkErr
		}
		return a.Param("id") == a.UserID, nil
	}
	reg, err := permission.NewRegistry([]permission.Group{
		{Name: "users", Operations: []permission.Entry{
			{Operation: "get", FeatureName: "Users", Method: http.MethodGet, Path: "/api/users/[id]",
				Rule: permission.PredicateRule{Name: "self", Roles: []model.RoleName{model.RoleRoot, model.RoleAdmin}, Check: selfOnly}},
		}},
		{Name: "account", Operations: []permission.Entry{
			{Operation: "permissions", FeatureName: "Account", Method: http.MethodGet, Path: "/api/permissions",
				Rule: permission.RoleListRule{Roles: []model.RoleName{model.RoleRoot, model.RoleAdmin}}},
		}},
	})
	require.NoError(t, err)
	return permission.NewResolver(reg)
}

type captured struct {
	headers  http.Header
	identity *Identity
}

func newTestEngine(t *testing.T, cfg AccessConfig) (*gin.Engine, *captured) {
	t.Helper()
	if cfg.Sessions == nil {
		cfg.Sessions = fakeSessions{}
	}
	if cfg.Roles == nil {
		cfg.Roles = fakeRoles{users: map[string]*model.Role{
			"admin-1":   roleAdmin,
			"manager-1": roleManager,
			"42":        roleTeacher,
			"7":         roleTeacher,
		}}
	}
	if cfg.Resolver == nil {
		cfg.Resolver = testResolver(t, nil)
	}
	if cfg.ExcludedPrefixes == nil {
		cfg.ExcludedPrefixes = []string{"/api/auth", "/health"}
	}

	got := &captured{}
	r := gin.New()
	r.Use(AccessControl(cfg))
	capture := func(c *gin.Context) {
		got.headers = c.Request.Header.Clone()
		got.identity = GetIdentity(c)
		c.Status(http.StatusNoContent)
	}
	r.GET("/api/users/:id", capture)
	r.GET("/api/permissions", capture)
	r.GET("/api/auth/callback", capture)
	r.GET("/health", capture)
	r.NoRoute(capture)
	return r, got
}

func serve(r *gin.Engine, path, user string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		req.Header.Set("x-test-user", user)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestAccessControlSelfAccess(t *testing.T) {
	r, got := newTestEngine(t, AccessConfig{})

	w := serve(r, "/api/users/42", "42", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "42", got.headers.Get(HeaderUserID))
	assert.Equal(t, "teacher", got.headers.Get(HeaderUserRole))
	assert.Empty(t, got.headers.Get(HeaderOriginalUserRole))
	require.NotNil(t, got.identity)
	assert.Equal(t, permission.ReasonPredicate, got.identity.Decision.Reason)
}

func TestAccessControlDenied(t *testing.T) {
	r, _ := newTestEngine(t, AccessConfig{})

	w := serve(r, "/api/users/42", "7", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Permission denied", errorBody(t, w))
}

func TestAccessControlUnauthenticated(t *testing.T) {
	r, _ := newTestEngine(t, AccessConfig{})

	w := serve(r, "/api/users/42", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", errorBody(t, w))

	// A session for a user without a role is treated as no session.
	w = serve(r, "/api/users/42", "ghost", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccessControlSessionStoreDown(t *testing.T) {
	r, _ := newTestEngine(t, AccessConfig{Sessions: fakeSessions{err: service.ErrSessionStore}})

	w := serve(r, "/api/users/42", "42", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to verify session", errorBody(t, w))
}

func TestAccessControlRoleLookupFailure(t *testing.T) {
	r, _ := newTestEngine(t, AccessConfig{Roles: fakeRoles{err: errors.New("db down")}})

	w := serve(r, "/api/users/42", "42", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to resolve user role", errorBody(t, w))
}

func TestAccessControlPredicateFailure(t *testing.T) {
	r, _ := newTestEngine(t, AccessConfig{Resolver: testResolver(t, errors.New("db down"))})

	w := serve(r, "/api/users/42", "7", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to resolve permissions", errorBody(t, w))
}

func TestAccessControlPreview(t *testing.T) {
	r, got := newTestEngine(t, AccessConfig{})

	// Admin previewing teacher loses admin-only access.
	w := serve(r, "/api/permissions", "admin-1", map[string]string{HeaderPreviewRole: "teacher"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// ...and is seen as the teacher, with the real role forwarded.
	w = serve(r, "/api/users/admin-1", "admin-1", map[string]string{HeaderPreviewRole: "teacher"})
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "teacher", got.headers.Get(HeaderUserRole))
	assert.Equal(t, "admin", got.headers.Get(HeaderOriginalUserRole))
	assert.True(t, got.identity.Impersonating())
	assert.Equal(t, model.RoleAdmin, got.identity.OriginalRole.Name)
}

func TestAccessControlPreviewEscalationIgnored(t *testing.T) {
	r, got := newTestEngine(t, AccessConfig{})

	w := serve(r, "/api/permissions", "42", map[string]string{HeaderPreviewRole: "admin"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(r, "/api/users/42", "42", map[string]string{HeaderPreviewRole: "admin"})
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "teacher", got.headers.Get(HeaderUserRole))
	assert.Empty(t, got.headers.Get(HeaderOriginalUserRole))
	assert.Equal(t, permission.PreviewRejected, got.identity.Preview)

	w = serve(r, "/api/users/42", "42", map[string]string{HeaderPreviewRole: "janitor"})
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "teacher", got.headers.Get(HeaderUserRole))
}

func TestAccessControlStripsClientIdentityHeaders(t *testing.T) {
	r, got := newTestEngine(t, AccessConfig{})

	w := serve(r, "/api/users/42", "42", map[string]string{
		"X-User-Id":            "admin-1",
		"X-User-Role":          "root",
		"X-User-Extra":         "1",
		"X-Original-User-Role": "root",
	})
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "42", got.headers.Get(HeaderUserID))
	assert.Equal(t, "teacher", got.headers.Get(HeaderUserRole))
	assert.Empty(t, got.headers.Get("X-User-Extra"))
	assert.Empty(t, got.headers.Get(HeaderOriginalUserRole))

	// Excluded paths never see forged identity either.
	w = serve(r, "/health", "", map[string]string{"X-User-Id": "admin-1"})
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, got.headers.Get(HeaderUserID))
}

func TestAccessControlSkipsExcludedAndNonAPIPaths(t *testing.T) {
	r, got := newTestEngine(t, AccessConfig{})

	for _, path := range []string{"/api/auth/callback", "/health", "/dashboard", "/static/app.js"} {
		w := serve(r, path, "", nil)
		assert.Equal(t, http.StatusNoContent, w.Code, path)
		assert.Nil(t, got.identity, path)
	}

	// Prefixes match whole segments only.
	w := serve(r, "/api/authors", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccessControlUnregisteredRouteFailsOpen(t *testing.T) {
	r, got := newTestEngine(t, AccessConfig{})

	w := serve(r, "/api/unregistered-resource", "7", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, got.identity)
	assert.Equal(t, permission.ReasonUnregistered, got.identity.Decision.Reason)
	assert.Equal(t, "7", got.headers.Get(HeaderUserID))

	// Still requires a session.
	w = serve(r, "/api/unregistered-resource", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
