package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/permission"
	"github.com/stemsi/eduportal-backend/internal/response"
	"github.com/stemsi/eduportal-backend/internal/service"
)

// Request headers read or written by AccessControl.
const (
	HeaderPreviewRole      = "x-preview-role"
	HeaderUserID           = "x-user-id"
	HeaderUserRole         = "x-user-role"
	HeaderOriginalUserRole = "x-original-user-role"
)

// ContextKeyIdentity is the Gin context key for the resolved Identity.
const ContextKeyIdentity = "identity"

// SessionValidator establishes who the caller is.
type SessionValidator interface {
	CurrentUser(c *gin.Context) (*service.Session, error)
}

// RoleProvider resolves the caller's real and effective roles.
type RoleProvider interface {
	RoleForUser(ctx context.Context, userID string) (*model.Role, error)
	ResolveEffectiveRole(ctx context.Context, realRole *model.Role, previewName string) permission.EffectiveRole
}

// Authorizer decides whether a role may perform a request.
type Authorizer interface {
	Resolve(ctx context.Context, method, path string, role *model.Role, userID string) (permission.Decision, error)
}

// AccessConfig wires AccessControl.
type AccessConfig struct {
	Sessions SessionValidator
	Roles    RoleProvider
	Resolver Authorizer
	// ExcludedPrefixes are never checked, e.g. the auth callback routes.
	ExcludedPrefixes []string
}

// Identity is the authenticated, authorized caller of the current request.
type Identity struct {
	UserID       string
	Email        string
	Role         *model.Role
	OriginalRole *model.Role
	Preview      permission.PreviewOutcome
	Decision     permission.Decision
}

// Impersonating reports whether a preview role is in effect.
func (i *Identity) Impersonating() bool { return i.Preview == permission.PreviewApplied }

// GetIdentity extracts the Identity stored by AccessControl.
func GetIdentity(c *gin.Context) *Identity {
	v, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return nil
	}
	id, ok := v.(*Identity)
	if !ok {
		return nil
	}
	return id
}

// AccessControl authorizes every /api request against the permission
// registry before it reaches a handler. On success the caller's identity is
// forwarded to handlers as x-user-* request headers and as an Identity in
// the Gin context.
func AccessControl(cfg AccessConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		stripIdentityHeaders(c.Request.Header)

		path := c.Request.URL.Path
		if !isAPIPath(path) || hasExcludedPrefix(path, cfg.ExcludedPrefixes) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		log := zerolog.Ctx(ctx).With().
			Str("component", "access").
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()

		sess, err := cfg.Sessions.CurrentUser(c)
		if err != nil {
			if errors.Is(err, service.ErrSessionStore) {
				log.Error().Err(err).Msg("session check failed")
				response.AbortError(c, http.StatusInternalServerError, response.ErrSessionUnavailable)
				return
			}
			log.Debug().Err(err).Msg("unauthenticated request")
			response.AbortError(c, http.StatusUnauthorized, response.ErrUnauthorized)
			return
		}

		realRole, err := cfg.Roles.RoleForUser(ctx, sess.UserID)
		if err != nil {
			log.Error().Err(err).Str("user_id", sess.UserID).Msg("role lookup failed")
			response.AbortError(c, http.StatusInternalServerError, response.ErrRoleLookup)
			return
		}
		if realRole == nil {
			log.Debug().Str("user_id", sess.UserID).Msg("user has no role")
			response.AbortError(c, http.StatusUnauthorized, response.ErrUnauthorized)
			return
		}

		eff := cfg.Roles.ResolveEffectiveRole(ctx, realRole, c.GetHeader(HeaderPreviewRole))
		if eff.Outcome == permission.PreviewRejected {
			log.Warn().
				Str("user_id", sess.UserID).
				Str("real_role", string(realRole.Name)).
				Str("preview_role", c.GetHeader(HeaderPreviewRole)).
				Str("reason", eff.Reason).
				Msg("preview role rejected")
		}

		decision, err := cfg.Resolver.Resolve(ctx, c.Request.Method, path, eff.Role, sess.UserID)
		if err != nil {
			log.Error().Err(err).Str("user_id", sess.UserID).Msg("permission check failed")
			response.AbortError(c, http.StatusInternalServerError, response.ErrPermissionLookup)
			return
		}
		logDecision(log, sess.UserID, eff, decision)

		if !decision.Allowed {
			response.AbortError(c, http.StatusForbidden, response.ErrPermissionDenied)
			return
		}

		c.Request.Header.Set(HeaderUserID, sess.UserID)
		c.Request.Header.Set(HeaderUserRole, string(eff.Role.Name))
		if eff.Impersonating() {
			c.Request.Header.Set(HeaderOriginalUserRole, string(eff.Original.Name))
		}
		c.Set(ContextKeyIdentity, &Identity{
			UserID:       sess.UserID,
			Email:        sess.Email,
			Role:         eff.Role,
			OriginalRole: eff.Original,
			Preview:      eff.Outcome,
			Decision:     decision,
		})
		c.Next()
	}
}

func logDecision(log zerolog.Logger, userID string, eff permission.EffectiveRole, d permission.Decision) {
	var ev *zerolog.Event
	switch {
	case d.Reason == permission.ReasonUnregistered:
		ev = log.Warn()
	case d.Allowed:
		ev = log.Debug()
	default:
		ev = log.Info()
	}
	ev = ev.Str("user_id", userID).
		Str("role", string(eff.Role.Name)).
		Str("preview", string(eff.Outcome)).
		Str("reason", d.Reason).
		Bool("allowed", d.Allowed)
	if d.Reason == permission.ReasonUnregistered {
		ev.Msg("no permission entry matches; allowing")
		return
	}
	ev.Str("entry", d.Entry.Key()).
		Str("feature", d.Entry.FeatureName).
		Int("score", d.Score).
		Bool("any_method", d.AnyMethod).
		Msg("access decision")
}

// stripIdentityHeaders removes client-supplied identity headers so only
// values injected by AccessControl reach handlers.
func stripIdentityHeaders(h http.Header) {
	for key := range h {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "x-user-") || lower == HeaderOriginalUserRole {
			h.Del(key)
		}
	}
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// hasExcludedPrefix matches whole path segments: "/api/auth" excludes
// "/api/auth/callback" but not "/api/authors".
func hasExcludedPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimSuffix(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
