package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"

	"github.com/Vovarama1992/channel_subs/internal/infra"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]

	driver := getEnv("DB_DRIVER", infra.DriverSQLite)
	dsn := os.Getenv("DATABASE_URL")
	if driver == infra.DriverSQLite {
		dsn = infra.SQLiteDSN(getEnv("DB_FILE", "subscriptions.db"))
	}

	db, err := infra.OpenDB(context.Background(), driver, dsn)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer db.Close()

	m, err := infra.NewMigrator(db, driver)
	if err != nil {
		log.Fatalf("failed to init migrations: %v", err)
	}

	switch command {
	case "up":
		err := m.Up()
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			log.Println("no change: database is up to date")
		case err != nil:
			log.Fatalf("migrate up: %v", err)
		default:
			log.Println("migrations applied")
		}

	case "down":
		// только последняя миграция
		if err := m.Steps(-1); err != nil {
			log.Fatalf("rollback: %v", err)
		}
		log.Println("last migration rolled back")

	case "goto":
		if len(os.Args) < 3 {
			log.Fatalf("version is required")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalf("invalid version: %v", err)
		}
		if err := m.Migrate(uint(version)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migrate to %d: %v", version, err)
		}
		log.Printf("database at version %d", version)

	case "force":
		if len(os.Args) < 3 {
			log.Fatalf("version is required")
		}
		version, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatalf("invalid version: %v", err)
		}
		if err := m.Force(version); err != nil {
			log.Fatalf("force %d: %v", version, err)
		}
		log.Printf("version forced to %d", version)

	case "status":
		version, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			log.Println("no migrations applied yet")
		case err != nil:
			log.Fatalf("read version: %v", err)
		case dirty:
			log.Printf("version: %d (dirty)", version)
		default:
			log.Printf("version: %d", version)
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("usage: go run ./cmd/migrate <command>")
	fmt.Println("  up          apply all pending migrations")
	fmt.Println("  down        roll back the last migration")
	fmt.Println("  goto N      migrate to version N")
	fmt.Println("  force N     set version N without running migrations (dirty state)")
	fmt.Println("  status      print current version")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
