package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	connector "github.com/goliatone/go-compliance-connector"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const migrationsDir = "data/sql/migrations"

// RegisterFunc hands a dialect's migration tree to the persistence client,
// usually persistence.Client.RegisterSQLMigrations.
type RegisterFunc func(ctx context.Context, fsys fs.FS) error

// ForDialect returns the connector_tokens migration tree for dialect. An
// optional root replaces the embedded filesystem.
func ForDialect(dialect string, root ...fs.FS) (fs.FS, error) {
	source := connector.GetMigrationsFS()
	if len(root) > 0 && root[0] != nil {
		source = root[0]
	}

	dir := migrationsDir
	switch strings.TrimSpace(strings.ToLower(dialect)) {
	case DialectPostgres:
	case DialectSQLite:
		dir += "/sqlite"
	default:
		return nil, fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}

	tree, err := fs.Sub(source, dir)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", dir, err)
	}
	matches, err := fs.Glob(tree, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("migrations: glob %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("migrations: %s has no *.up.sql files", dir)
	}
	return tree, nil
}

// Register resolves the tree for dialect and passes it to registerFn.
func Register(ctx context.Context, dialect string, registerFn RegisterFunc) error {
	if registerFn == nil {
		return fmt.Errorf("migrations: register function is required")
	}
	tree, err := ForDialect(dialect)
	if err != nil {
		return err
	}
	if err := registerFn(ctx, tree); err != nil {
		return fmt.Errorf("migrations: register %s: %w", dialect, err)
	}
	return nil
}
