package db

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	embeddedmigrations "github.com/solatis/rulekeeper/migrations"
)

// MigrationStatus reports whether one embedded migration has been applied.
type MigrationStatus struct {
	ID          string
	Checksum    string
	Applied     bool
	AppliedAt   *time.Time
	ExecutionMs int64
}

type migration struct {
	ID       string
	Checksum string
	SQL      string
}

type appliedMigration struct {
	ID          string     `db:"migration_id"`
	Checksum    string     `db:"checksum"`
	AppliedAt   *time.Time `db:"applied_at"`
	ExecutionMs int64      `db:"execution_ms"`
}

// MigrateUp applies pending migrations in filename order. Each migration and
// its bookkeeping row commit in one transaction. Applied migrations whose
// embedded file changed fail the whole run before anything is applied.
func MigrateUp(ctx context.Context, db *sqlx.DB) error {
	migrations, applied, err := prepare(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if _, ok := applied[m.ID]; ok {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

// MigrateStatus lists every embedded migration with its applied state.
func MigrateStatus(ctx context.Context, db *sqlx.DB) ([]MigrationStatus, error) {
	migrations, applied, err := prepare(ctx, db)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		status := MigrationStatus{ID: m.ID, Checksum: m.Checksum}
		if a, ok := applied[m.ID]; ok {
			status.Applied = true
			status.AppliedAt = a.AppliedAt
			status.ExecutionMs = a.ExecutionMs
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Pending reports whether any embedded migration is not yet applied.
func Pending(ctx context.Context, db *sqlx.DB) (bool, error) {
	statuses, err := MigrateStatus(ctx, db)
	if err != nil {
		return false, err
	}
	for _, s := range statuses {
		if !s.Applied {
			return true, nil
		}
	}
	return false, nil
}

// prepare loads embedded migrations for the driver, ensures the bookkeeping
// table exists and verifies checksums of applied migrations.
func prepare(ctx context.Context, db *sqlx.DB) ([]migration, map[string]appliedMigration, error) {
	fsys, dir, err := migrationSource(db.DriverName())
	if err != nil {
		return nil, nil, err
	}

	migrations, err := parseMigrationFiles(fsys, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse migrations: %w", err)
	}

	if err := createMigrationsTable(ctx, db); err != nil {
		return nil, nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	var rows []appliedMigration
	if err := db.SelectContext(ctx, &rows, "SELECT migration_id, checksum, applied_at, execution_ms FROM migrations"); err != nil {
		return nil, nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}

	expected := make(map[string]string, len(migrations))
	for _, m := range migrations {
		expected[m.ID] = m.Checksum
	}

	applied := make(map[string]appliedMigration, len(rows))
	for _, row := range rows {
		checksum, ok := expected[row.ID]
		if !ok {
			return nil, nil, fmt.Errorf("migration %s exists in database but not in embedded files", row.ID)
		}
		if checksum != row.Checksum {
			return nil, nil, fmt.Errorf("checksum mismatch for migration %s: expected %s, got %s", row.ID, checksum, row.Checksum)
		}
		applied[row.ID] = row
	}

	return migrations, applied, nil
}

func migrationSource(driver string) (fs.FS, string, error) {
	switch driver {
	case DriverSQLite:
		return embeddedmigrations.SqliteMigrations, "sqlite", nil
	case DriverPostgres:
		return embeddedmigrations.PostgresMigrations, "postgres", nil
	default:
		return nil, "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func parseMigrationFiles(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var migrations []migration
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		content, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		sum := sha256.Sum256(content)
		migrations = append(migrations, migration{
			ID:       e.Name(),
			Checksum: hex.EncodeToString(sum[:]),
			SQL:      string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].ID < migrations[j].ID })
	return migrations, nil
}

func createMigrationsTable(ctx context.Context, db *sqlx.DB) error {
	createSQL := `
		CREATE TABLE IF NOT EXISTS migrations (
			migration_id TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL,
			execution_ms INTEGER NOT NULL
		)`
	if db.DriverName() == DriverSQLite {
		// go-sqlite3 parses TIMESTAMP columns back into time.Time.
		createSQL = `
			CREATE TABLE IF NOT EXISTS migrations (
				migration_id TEXT PRIMARY KEY,
				checksum TEXT NOT NULL,
				applied_at TIMESTAMP NOT NULL,
				execution_ms INTEGER NOT NULL
			)`
	}
	_, err := db.ExecContext(ctx, createSQL)
	return err
}

func apply(ctx context.Context, db *sqlx.DB, m migration) error {
	start := time.Now()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %s: %w", m.ID, err)
	}
	defer tx.Rollback()

	// lib/pq rejects multiple statements in one Exec.
	for _, stmt := range splitStatements(m.SQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		tx.Rebind("INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)"),
		m.ID, m.Checksum, time.Now().UTC(), time.Since(start).Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.ID, err)
	}
	return nil
}

// splitStatements drops full-line "--" comments and splits on ";".
// Statements must not contain ";" inside literals.
func splitStatements(sql string) []string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(sql))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var out []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
