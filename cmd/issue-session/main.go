// Command issue-session mints a session token for local development, so the
// API can be exercised without the external auth provider.
//
// Usage:
//
//	issue-session -user <id> [-email a@b.c] [-ttl 8h]
//	issue-session -revoke <token>
//	issue-session -invalidate-role <id>
//
// -invalidate-role drops the cached role of a user whose role was changed
// directly in the database and prints the role the next request will see.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/eduportal-backend/internal/config"
	"github.com/stemsi/eduportal-backend/internal/database"
	"github.com/stemsi/eduportal-backend/internal/logger"
	"github.com/stemsi/eduportal-backend/internal/repository"
	"github.com/stemsi/eduportal-backend/internal/service"
)

func main() {
	userID := flag.String("user", "", "user id to issue the session for")
	email := flag.String("email", "", "email claim")
	ttl := flag.Duration("ttl", 0, "token lifetime (default SESSION_TTL_HOURS)")
	revoke := flag.String("revoke", "", "revoke this token instead of issuing one")
	invalidate := flag.String("invalidate-role", "", "drop the cached role of this user id")
	flag.Parse()

	cfg := config.Load()
	if *ttl > 0 {
		cfg.SessionTTL = *ttl
	}

	if *revoke != "" {
		if err := revokeToken(cfg, *revoke); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Session revoked")
		return
	}

	if *invalidate != "" {
		if err := invalidateRole(cfg, *invalidate); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	// Issuing needs only the signing secret.
	auth := service.NewAuthService(cfg, nil)
	token, claims, err := auth.IssueToken(*userID, *email)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "jti=%s expires=%s\n", claims.ID, claims.ExpiresAt.Time.Format(time.RFC3339))
	fmt.Fprintf(os.Stderr, "curl -H 'Cookie: %s=<token>' ...\n", cfg.SessionCookieName)
	fmt.Println(token)
}

func revokeToken(cfg *config.Config, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log := logger.New(os.Stderr, "warn", "pretty")
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rdb.Close()

	auth := service.NewAuthService(cfg, rdb)
	claims, err := auth.ValidateToken(token)
	if err != nil {
		return err
	}
	return auth.RevokeSession(ctx, claims)
}

func invalidateRole(cfg *config.Config, userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log := logger.New(os.Stderr, "warn", "pretty")
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rdb.Close()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	roles := service.NewRoleService(repository.NewRoleRepository(pool), rdb, cfg.RoleCacheTTL, log)
	if err := roles.InvalidateUser(ctx, userID); err != nil {
		return fmt.Errorf("invalidate role cache: %w", err)
	}

	role, err := roles.RoleForUser(ctx, userID)
	if err != nil {
		return err
	}
	if role == nil {
		fmt.Printf("%s has no role\n", userID)
		return nil
	}
	fmt.Printf("%s now resolves to %s\n", userID, role.Name)
	return nil
}
