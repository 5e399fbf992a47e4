package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func main() {
	pathFlag := flag.String("path", "", "migrations directory (defaults to MIGRATIONS_PATH, then ./migrations upward)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, reading configuration from the environment")
	}

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		log.Fatal("DB_URL is required")
	}

	dir, err := resolveMigrationsDir(*pathFlag)
	if err != nil {
		log.Fatal(err)
	}

	m, err := migrate.New("file://"+dir, dbURL)
	if err != nil {
		log.Fatal(err)
	}

	direction := "up"
	if args := flag.Args(); len(args) > 0 {
		direction = args[0]
	}

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		log.Fatalf("unknown direction %q, want up or down", direction)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Println("no pending migrations")
		return
	}
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("migrations applied (%s) from %s", direction, dir)
}

// resolveMigrationsDir prefers an explicit path, then MIGRATIONS_PATH, then
// walks from the working directory toward the filesystem root looking for a
// migrations directory. The walk lets the binary run from any subdirectory
// of a checkout.
func resolveMigrationsDir(override string) (string, error) {
	if override == "" {
		override = os.Getenv("MIGRATIONS_PATH")
	}
	if override != "" {
		return filepath.Abs(override)
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("no migrations directory found; pass -path or set MIGRATIONS_PATH")
		}
		dir = parent
	}
}
