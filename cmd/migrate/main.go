// Command migrate applies the portal schema and reports whether the fixed
// roles the permission table depends on are seeded.
//
// Usage:
//
//	migrate [-source file://migrations] <up|down|steps N|version|force V|roles>
//
// Every command that changes the schema also flushes the role cache, so
// running servers pick up reseeded roles without waiting for the cache TTL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"

	"github.com/stemsi/eduportal-backend/internal/config"
	"github.com/stemsi/eduportal-backend/internal/database"
	"github.com/stemsi/eduportal-backend/internal/logger"
	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/permission"
	"github.com/stemsi/eduportal-backend/internal/repository"
	"github.com/stemsi/eduportal-backend/internal/service"
)

func main() {
	cfg := config.Load()

	source := flag.String("source", cfg.MigrationsSource, "migration source URL (MIGRATIONS_SOURCE)")
	noFlush := flag.Bool("no-flush", false, "skip flushing the role cache after a schema change")
	flag.Parse()

	log := logger.New(os.Stderr, cfg.LogLevel, "pretty")

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if args[0] == "roles" {
		if err := reportRoles(ctx, cfg, log); err != nil {
			log.Fatal().Err(err).Msg("Role check failed")
		}
		return
	}

	m, err := migrate.New(*source, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("source", *source).Msg("Migration failed to initialize")
	}
	defer m.Close()

	changed, err := run(m, args)
	if err != nil {
		log.Fatal().Err(err).Str("command", args[0]).Msg("Migration failed")
	}
	if !changed {
		return
	}

	if args[0] == "up" {
		if err := reportRoles(ctx, cfg, log); err != nil {
			log.Error().Err(err).Msg("Role check failed")
		}
	}
	if !*noFlush {
		if err := flushRoleCache(ctx, cfg, log); err != nil {
			log.Error().Err(err).Msg("Role cache flush failed; entries expire after ROLE_CACHE_TTL_SECONDS")
		}
	}
}

// run executes one migrate command and reports whether the schema changed.
func run(m *migrate.Migrate, args []string) (bool, error) {
	switch args[0] {
	case "up":
		return applied(m.Up())
	case "down":
		return applied(m.Down())
	case "steps":
		n, err := intArg(args, "steps")
		if err != nil {
			return false, err
		}
		return applied(m.Steps(n))
	case "force":
		v, err := intArg(args, "force")
		if err != nil {
			return false, err
		}
		if err := m.Force(v); err != nil {
			return false, err
		}
		fmt.Printf("Forced version to %d\n", v)
		return true, nil
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("Version: none")
			return false, nil
		}
		if err != nil {
			return false, err
		}
		fmt.Printf("Version: %d, Dirty: %t\n", version, dirty)
		return false, nil
	default:
		printUsage()
		return false, nil
	}
}

func applied(err error) (bool, error) {
	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("No change")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	fmt.Println("Migrated successfully")
	return true, nil
}

func intArg(args []string, command string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s requires a number", command)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("invalid %s argument: %w", command, err)
	}
	return n, nil
}

// reportRoles prints the seeded roles in privilege order and fails when one
// of the fixed role names is missing, since permission entries naming it
// would then match nobody.
func reportRoles(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	roles, err := repository.NewRoleRepository(pool).List(ctx)
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}
	set := permission.NewRoleSet(roles)
	for _, r := range set.Roles() {
		fmt.Printf("  %d  %-16s %s\n", r.Order, r.Name, r.DisplayName)
	}

	if missing := set.Missing(model.AllRoleNames); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, n := range missing {
			names[i] = string(n)
		}
		return fmt.Errorf("roles not seeded: %s", strings.Join(names, ", "))
	}
	fmt.Printf("All %d roles seeded\n", len(model.AllRoleNames))
	return nil
}

func flushRoleCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rdb.Close()

	n, err := service.NewRoleService(nil, rdb, cfg.RoleCacheTTL, log).FlushCache(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("keys", n).Msg("Role cache flushed")
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: migrate [flags] <command>")
	fmt.Fprintln(os.Stderr, "Commands: up, down, steps <n>, version, force <version>, roles")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}
