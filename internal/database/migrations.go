package database

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var migrationName = regexp.MustCompile(`^(\d{8})_.+\.sql$`)

// errSkipMigration marks a migration that does not apply to this database.
var errSkipMigration = errors.New("migration not applicable")

// migration is one embedded SQL file. Header comments declare when it
// applies:
//
//	-- requires: <table>
//	-- adds: <table>.<column>
type migration struct {
	filename string
	name     string
	sql      string
	requires []string
	adds     []column
}

type column struct {
	table, name string
}

// RunMigrations applies every pending embedded migration in name order
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to get migrations: %w", err)
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.name] {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.filename, err)
		}
	}
	return nil
}

func loadMigrations() ([]migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		content, err := migrationsFS.ReadFile(path.Join("migrations", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}
		m, err := parseMigration(entry.Name(), string(content))
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].name < migrations[j].name
	})
	return migrations, nil
}

func parseMigration(filename, content string) (migration, error) {
	m := migration{filename: filename, name: filename, sql: content}
	if matches := migrationName.FindStringSubmatch(filename); len(matches) == 2 {
		m.name = matches[1]
	}

	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "--") {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "--")), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "requires":
			m.requires = append(m.requires, value)
		case "adds":
			table, name, ok := strings.Cut(value, ".")
			if !ok {
				return migration{}, fmt.Errorf("migration %s: adds %q is not table.column", filename, value)
			}
			m.adds = append(m.adds, column{table: table, name: name})
		}
	}
	return m, sc.Err()
}

func appliedMigrations(db *gorm.DB) (map[string]bool, error) {
	var names []string
	if err := db.Table("schema_migrations").Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(names))
	for _, n := range names {
		applied[n] = true
	}
	return applied, nil
}

func applyMigration(db *gorm.DB, m migration) error {
	err := checkPrerequisites(db, m)
	if errors.Is(err, errSkipMigration) {
		// Fresh databases get the final schema from AutoMigrate, so the
		// migration is recorded without running.
		return db.Exec("INSERT OR IGNORE INTO schema_migrations (name) VALUES (?)", m.name).Error
	}
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.sql).Error; err != nil {
			return err
		}
		return tx.Exec("INSERT INTO schema_migrations (name) VALUES (?)", m.name).Error
	})
}

func checkPrerequisites(db *gorm.DB, m migration) error {
	for _, table := range m.requires {
		exists, err := tableExists(db, table)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: table %s does not exist yet", errSkipMigration, table)
		}
	}
	for _, c := range m.adds {
		exists, err := columnExists(db, c.table, c.name)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: column %s.%s already exists", errSkipMigration, c.table, c.name)
		}
	}
	return nil
}

func tableExists(db *gorm.DB, table string) (bool, error) {
	var count int64
	err := db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count).Error
	return count > 0, err
}

func columnExists(db *gorm.DB, table, name string) (bool, error) {
	var count int64
	err := db.Raw("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name=?", table, name).Scan(&count).Error
	return count > 0, err
}
