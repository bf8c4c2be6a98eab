package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/ManuelReschke/UniClips/internal/pkg/config"
	"github.com/ManuelReschke/UniClips/internal/pkg/env"
)

func main() {
	if err := env.SetupEnvFile(); err != nil {
		log.Fatalf("Could not load environment: %v", err)
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.Infof("Connecting to database: %s@%s:%s/%s", cfg.DB.User, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)

	source := env.GetEnv("MIGRATIONS_PATH", "file://migrations")
	m, err := migrate.New(source, cfg.DB.MigrateURL())
	if err != nil {
		log.Fatalf("Could not initialize migrations: %v", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Errorf("Could not close migration resources: %v, %v", sourceErr, dbErr)
		}
	}()

	if err := run(m, command, os.Args[2:]); err != nil {
		log.Fatal(err)
	}
}

func run(m *migrate.Migrate, command string, args []string) error {
	switch command {
	case "up":
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("No change: database is up to date")
			return nil
		}
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		log.Info("Migrations applied")

	case "down":
		if err := m.Steps(-1); err != nil {
			return fmt.Errorf("roll back last migration: %w", err)
		}
		log.Info("Rolled back the last migration")

	case "goto":
		version, err := versionArg(args)
		if err != nil {
			return err
		}
		err = m.Migrate(version)
		if errors.Is(err, migrate.ErrNoChange) {
			log.Infof("No change: database is already at version %d", version)
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrate to version %d: %w", version, err)
		}
		log.Infof("Migrated to version %d", version)

	case "force":
		version, err := versionArg(args)
		if err != nil {
			return err
		}
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("force version %d: %w", version, err)
		}
		log.Infof("Forced version %d, dirty flag cleared", version)

	case "version", "status":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info("No migrations have been applied yet")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		suffix := ""
		if dirty {
			suffix = " (dirty)"
		}
		log.Infof("Current version: %d%s", version, suffix)

	default:
		printUsage()
		os.Exit(1)
	}
	return nil
}

func versionArg(args []string) (uint, error) {
	if len(args) < 1 {
		return 0, errors.New("a version number is required")
	}
	v, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	return uint(v), nil
}

func printUsage() {
	fmt.Println("Usage: go run cmd/migrate/main.go [command]")
	fmt.Println("Commands:")
	fmt.Println("  up        - apply all pending migrations")
	fmt.Println("  down      - roll back the last migration")
	fmt.Println("  goto N    - migrate to version N")
	fmt.Println("  force N   - set version N without running migrations (clears dirty)")
	fmt.Println("  version   - show the current version")
}
