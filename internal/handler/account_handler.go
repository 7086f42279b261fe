package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/eduportal-backend/internal/middleware"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/permission"
	"github.com/stemsi/eduportal-backend/internal/response"
)

// RoleLister loads the request-scoped role list.
type RoleLister interface {
	ListRoles(ctx context.Context) (permission.RoleSet, error)
}

// UserLookup loads the caller's profile.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// AccountHandler serves the endpoints that expose the caller's resolved
// access to the frontend.
type AccountHandler struct {
	roles    RoleLister
	users    UserLookup
	registry *permission.Registry
}

func NewAccountHandler(roles RoleLister, users UserLookup, registry *permission.Registry) *AccountHandler {
	return &AccountHandler{roles: roles, users: users, registry: registry}
}

// MeResponse describes the caller as seen by the access layer.
type MeResponse struct {
	UserID       string      `json:"user_id"`
	Email        string      `json:"email,omitempty"`
	Name         string      `json:"name,omitempty"`
	Region       *string     `json:"region,omitempty"`
	Role         *model.Role `json:"role"`
	OriginalRole *model.Role `json:"original_role,omitempty"`
	Preview      string      `json:"preview"`
}

// Me returns the identity injected by the access middleware.
func (h *AccountHandler) Me(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized)
		return
	}

	resp := MeResponse{
		UserID:  id.UserID,
		Email:   id.Email,
		Role:    id.Role,
		Preview: string(id.Preview),
	}
	if id.Impersonating() {
		resp.OriginalRole = id.OriginalRole
	}

	// The profile is decoration; identity comes from the session.
	user, err := h.users.GetByID(c.Request.Context(), id.UserID)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Warn().Err(err).Str("user_id", id.UserID).Msg("load profile failed")
	} else if user != nil {
		resp.Name = user.Name
		resp.Region = user.Region
		if resp.Email == "" {
			resp.Email = user.Email
		}
	}
	response.Success(c, http.StatusOK, resp)
}

// ListRoles returns the roles the caller may assign or preview. While
// previewing, the options are those of the real role so the preview can be
// switched back.
func (h *AccountHandler) ListRoles(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized)
		return
	}

	set, err := h.roles.ListRoles(c.Request.Context())
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("list roles failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, set.AtOrBelow(id.OriginalRole))
}

// PermissionEntry is one row of the permission table.
type PermissionEntry struct {
	Key         string           `json:"key"`
	Group       string           `json:"group"`
	Operation   string           `json:"operation"`
	Feature     string           `json:"feature"`
	Description string           `json:"description,omitempty"`
	Method      string           `json:"method"`
	Path        string           `json:"path"`
	Rule        string           `json:"rule"`
	Roles       []model.RoleName `json:"roles,omitempty"`
	Check       string           `json:"check,omitempty"`
}

// ListPermissions returns the registry entries in evaluation order.
func (h *AccountHandler) ListPermissions(c *gin.Context) {
	entries := h.registry.Entries()
	out := make([]PermissionEntry, 0, len(entries))
	for _, e := range entries {
		pe := PermissionEntry{
			Key:         e.Key(),
			Group:       e.Group,
			Operation:   e.Operation,
			Feature:     e.FeatureName,
			Description: e.Description,
			Method:      e.Method,
			Path:        e.Path,
			Rule:        permission.RuleKind(e.Rule),
		}
		switch r := e.Rule.(type) {
		case permission.RoleListRule:
			pe.Roles = r.Roles
		case permission.PredicateRule:
			pe.Roles = r.Roles
			pe.Check = r.Name
		}
		out = append(out, pe)
	}
	response.Success(c, http.StatusOK, out)
}
