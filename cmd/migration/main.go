package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"github.com/riskibarqy/rugby-live/internal/platform/logging"
	"github.com/riskibarqy/rugby-live/internal/platform/pgdsn"
)

const serviceName = "rugby-live-migrate"

// migrationsDirs are tried in order after MIGRATIONS_DIR: the repo checkout,
// then the container image layout.
var migrationsDirs = []string{"./migrations", "/app/migrations"}

type command struct {
	args string
	run  func(m *migrate.Migrate, args []string, logger *logging.Logger) error
}

var commands = map[string]command{
	"up":      {args: "", run: runUp},
	"down":    {args: "[steps]", run: runDown},
	"version": {args: "", run: runVersion},
	"force":   {args: "<version>", run: runForce},
	"goto":    {args: "<version>", run: runGoto},
}

func main() {
	_ = godotenv.Load()

	logger := logging.NewJSON(logging.ParseLevel(os.Getenv("LOG_LEVEL")), serviceName)
	defer func() { _ = logger.Sync() }()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[strings.ToLower(strings.TrimSpace(os.Args[1]))]
	if !ok {
		usage()
		os.Exit(2)
	}

	if err := run(cmd, os.Args[2:], logger); err != nil {
		logger.Error("migration failed", "command", os.Args[1], "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cmd command, args []string, logger *logging.Logger) error {
	dsn, err := databaseURL()
	if err != nil {
		return err
	}
	dir, err := migrationsDir(os.Getenv("MIGRATIONS_DIR"), migrationsDirs)
	if err != nil {
		return err
	}

	sourceURL := "file://" + filepath.ToSlash(dir)
	m, err := migrate.New(sourceURL, dsn.String())
	if err != nil {
		return fmt.Errorf("open migrator for %s: %w", dsn.Redacted(), err)
	}
	m.Log = migrateLogger{logger: logger.Named("migrate")}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			logger.Warn("close migrator", "error", err)
		}
	}()

	logger.Info("migrator ready", "source", sourceURL, "db", dsn.Name())
	return cmd.run(m, args, logger)
}

// databaseURL reads DB_URL with the same prepared-binary default as the API.
// golang-migrate only accepts the URL form.
func databaseURL() (pgdsn.DSN, error) {
	dsn := pgdsn.Parse(os.Getenv("DB_URL"))
	if dsn.String() == "" {
		return pgdsn.DSN{}, errors.New("DB_URL is required")
	}
	if !dsn.IsURL() {
		return pgdsn.DSN{}, errors.New("DB_URL must be a postgres:// URL for migrations")
	}

	disableBinary, err := envBool("DB_DISABLE_PREPARED_BINARY_RESULT", true)
	if err != nil {
		return pgdsn.DSN{}, err
	}
	if disableBinary {
		dsn = dsn.WithDefault("disable_prepared_binary_result", "yes")
	}
	return dsn.WithDefault("application_name", serviceName), nil
}

func migrationsDir(override string, fallbacks []string) (string, error) {
	candidates := append([]string{strings.TrimSpace(override)}, fallbacks...)
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			return abs, nil
		}
	}
	return "", fmt.Errorf("no migrations directory found in MIGRATIONS_DIR or %s", strings.Join(fallbacks, ", "))
}

func runUp(m *migrate.Migrate, _ []string, logger *logging.Logger) error {
	return report(m.Up(), logger, "migrations applied")
}

func runDown(m *migrate.Migrate, args []string, logger *logging.Logger) error {
	steps := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil || n <= 0 {
			return fmt.Errorf("down steps must be a positive integer, got %q", args[0])
		}
		steps = n
	}
	return report(m.Steps(-steps), logger, "migrations rolled back", "steps", steps)
}

func runVersion(m *migrate.Migrate, _ []string, _ *logging.Logger) error {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Println("version: none")
		fmt.Println("dirty: false")
		return nil
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	}
	fmt.Printf("version: %d\n", version)
	fmt.Printf("dirty: %t\n", dirty)
	return nil
}

func runForce(m *migrate.Migrate, args []string, logger *logging.Logger) error {
	version, err := versionArg(args)
	if err != nil {
		return err
	}
	if version > uint(^uint(0)>>1) {
		return fmt.Errorf("version %d is too large for this platform", version)
	}
	if err := m.Force(int(version)); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	logger.Info("version forced", "version", version)
	return nil
}

func runGoto(m *migrate.Migrate, args []string, logger *logging.Logger) error {
	version, err := versionArg(args)
	if err != nil {
		return err
	}
	return report(m.Migrate(version), logger, "migrated", "version", version)
}

func versionArg(args []string) (uint, error) {
	if len(args) == 0 {
		return 0, errors.New("a version argument is required")
	}
	value, err := strconv.ParseUint(strings.TrimSpace(args[0]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	return uint(value), nil
}

// report treats ErrNoChange as success.
func report(err error, logger *logging.Logger, msg string, kv ...any) error {
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migration changes")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info(msg, kv...)
	return nil
}

// envBool treats an unset variable as def, matching config.Load.
func envBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

// migrateLogger routes golang-migrate's progress lines into the JSON log.
type migrateLogger struct {
	logger *logging.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return false
}

func usage() {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "usage: %s <command> [args]\n", name)
	for _, key := range []string{"up", "down", "version", "force", "goto"} {
		fmt.Fprintf(os.Stderr, "  %s %s %s\n", name, key, commands[key].args)
	}
	fmt.Fprintln(os.Stderr, "env: DB_URL (postgres:// URL), MIGRATIONS_DIR, DB_DISABLE_PREPARED_BINARY_RESULT, LOG_LEVEL")
}
