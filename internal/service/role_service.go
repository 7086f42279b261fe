package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/stemsi/eduportal-backend/internal/config"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/permission"
)

// RoleStore is the persistent source of roles.
type RoleStore interface {
	GetByUserID(ctx context.Context, userID string) (*model.Role, error)
	GetByName(ctx context.Context, name model.RoleName) (*model.Role, error)
	List(ctx context.Context) ([]model.Role, error)
}

// noRole is cached for users without a role so repeated requests from them
// do not reach the database.
const noRole = "null"

// RoleService resolves roles through a short-lived Redis cache.
type RoleService struct {
	store RoleStore
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
	group singleflight.Group
}

// NewRoleService creates a new RoleService.
func NewRoleService(store RoleStore, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *RoleService {
	return &RoleService{
		store: store,
		rdb:   rdb,
		ttl:   ttl,
		log:   log.With().Str("component", "roles").Logger(),
	}
}

// RoleForUser returns the role assigned to userID, or nil when the user has
// none. Cache failures fall back to the database; database failures are
// returned.
func (s *RoleService) RoleForUser(ctx context.Context, userID string) (*model.Role, error) {
	return s.cached(ctx, config.CacheKey.UserRoleKey(userID), func(ctx context.Context) (*model.Role, error) {
		return s.store.GetByUserID(ctx, userID)
	})
}

// RoleByName returns the role called name, or nil when it does not exist.
func (s *RoleService) RoleByName(ctx context.Context, name model.RoleName) (*model.Role, error) {
	return s.cached(ctx, config.CacheKey.RoleByNameKey(string(name)), func(ctx context.Context) (*model.Role, error) {
		return s.store.GetByName(ctx, name)
	})
}

// ListRoles loads all roles into a request-scoped RoleSet.
func (s *RoleService) ListRoles(ctx context.Context) (permission.RoleSet, error) {
	roles, err := s.store.List(ctx)
	if err != nil {
		return permission.RoleSet{}, fmt.Errorf("list roles: %w", err)
	}
	return permission.NewRoleSet(roles), nil
}

// InvalidateUser drops the cached role of userID, e.g. after a role change.
func (s *RoleService) InvalidateUser(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, config.CacheKey.UserRoleKey(userID)).Err()
}

// FlushCache deletes every cached role entry and returns how many keys were
// removed. Run it after anything that rewrites the roles table.
func (s *RoleService) FlushCache(ctx context.Context) (int, error) {
	var removed int
	iter := s.rdb.Scan(ctx, 0, config.CacheKey.RolePattern(), 100).Iterator()
	batch := make([]string, 0, 100)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.rdb.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}
		removed += int(n)
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return removed, fmt.Errorf("flush role cache: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan role cache: %w", err)
	}
	if err := flush(); err != nil {
		return removed, fmt.Errorf("flush role cache: %w", err)
	}
	return removed, nil
}

func (s *RoleService) cached(ctx context.Context, key string, load func(context.Context) (*model.Role, error)) (*model.Role, error) {
	if role, hit := s.fromCache(ctx, key); hit {
		return role, nil
	}

	// The flight is shared by every waiter on key, so it must not inherit
	// the cancellation of whichever request happened to start it.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		role, err := load(flightCtx)
		if err != nil {
			return nil, err
		}
		s.toCache(flightCtx, key, role)
		return role, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	role, _ := res.Val.(*model.Role)
	if role == nil {
		return nil, nil
	}
	// Callers of a shared flight must not alias each other's role.
	cp := *role
	return &cp, nil
}

func (s *RoleService) fromCache(ctx context.Context, key string) (*model.Role, bool) {
	raw, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("key", key).Msg("role cache read failed")
		}
		return nil, false
	}
	if raw == noRole {
		return nil, true
	}
	var role model.Role
	if err := json.Unmarshal([]byte(raw), &role); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("discarding corrupt role cache entry")
		return nil, false
	}
	return &role, true
}

func (s *RoleService) toCache(ctx context.Context, key string, role *model.Role) {
	payload := []byte(noRole)
	if role != nil {
		var err error
		if payload, err = json.Marshal(role); err != nil {
			return
		}
	}
	if err := s.rdb.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("role cache write failed")
	}
}
