package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/eduportal-backend/internal/config"
)

// Session errors.
var (
	ErrNoSession      = errors.New("no valid session")
	ErrSessionRevoked = errors.New("session revoked")
	ErrSessionStore   = errors.New("session store unavailable")
)

// Claims extends JWT standard claims with the session's email. Subject is
// the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Session is the authenticated caller as established by the session token.
type Session struct {
	UserID    string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// AuthService validates session tokens issued by the auth provider.
type AuthService struct {
	cfg *config.Config
	rdb *redis.Client
	now func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, now: time.Now}
}

// IssueToken mints a signed session token for userID.
func (s *AuthService) IssueToken(userID, email string) (string, *Claims, error) {
	if userID == "" {
		return "", nil, errors.New("user id is required")
	}
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.SessionTTL)),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.SessionSecret))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// ValidateToken parses and validates a session token, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.SessionSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateSession checks that the token has not been revoked.
func (s *AuthService) ValidateSession(ctx context.Context, claims *Claims) error {
	if claims.ID == "" {
		return nil
	}
	n, err := s.rdb.Exists(ctx, config.CacheKey.RevokedSessionKey(claims.ID)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionStore, err)
	}
	if n > 0 {
		return ErrSessionRevoked
	}
	return nil
}

// RevokeSession marks the token as revoked until it would have expired anyway.
func (s *AuthService) RevokeSession(ctx context.Context, claims *Claims) error {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return errors.New("token cannot be revoked without jti and expiry")
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, config.CacheKey.RevokedSessionKey(claims.ID), "1", ttl).Err()
}

// TokenFromRequest returns the session token from the session cookie or,
// failing that, the Bearer authorization header.
func (s *AuthService) TokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(s.cfg.SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// CurrentUser returns the caller's session. A missing or invalid token yields
// ErrNoSession; a revoked one ErrSessionRevoked; a Redis failure
// ErrSessionStore.
func (s *AuthService) CurrentUser(c *gin.Context) (*Session, error) {
	raw := s.TokenFromRequest(c)
	if raw == "" {
		return nil, ErrNoSession
	}
	claims, err := s.ValidateToken(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if err := s.ValidateSession(c.Request.Context(), claims); err != nil {
		return nil, err
	}

	sess := &Session{UserID: claims.Subject, Email: claims.Email, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}
