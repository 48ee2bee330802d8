package migrate

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestValidateDirAcceptsRepoMigrations(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "create_users.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestValidateDirRequiresGooseHeaders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_missing_down.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o644))
	err := ValidateDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "goose Down")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Plan Tags!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_plan_tags.sql"))
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestDialect(t *testing.T) {
	got, err := Dialect("postgres")
	require.NoError(t, err)
	require.Equal(t, "postgres", got)

	got, err = Dialect("SQLite")
	require.NoError(t, err)
	require.Equal(t, "sqlite3", got)

	_, err = Dialect("oracle")
	require.Error(t, err)
}

func TestApplySQLiteSchemaIsIdempotent(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	require.NoError(t, ApplySQLiteSchema(ctx, conn))
	require.NoError(t, ApplySQLiteSchema(ctx, conn))

	for _, table := range []string{"users", "plans", "user_plans", "transactions"} {
		require.True(t, conn.Migrator().HasTable(table), "missing table %s", table)
	}
}

func TestSourceServesEmbeddedMigrations(t *testing.T) {
	source, err := Source(DefaultDir)
	require.NoError(t, err)
	entries, err := fs.ReadDir(source, ".")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Contains(t, names, "20260301090200_create_user_plans.sql")

	_, err = Source(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestNewMigratorRequiresDB(t *testing.T) {
	_, err := NewMigrator(nil, os.DirFS(t.TempDir()))
	require.Error(t, err)
}
