package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nguyenvh/custodesk/internal/models"
)

func TestOpenSQLiteInMemory(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "mongodb"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported database driver")
}

func TestSeedDataCreatesAdminOnce(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrateAndSeed(db))
	require.NoError(t, SeedData(db), "seeding twice must be a no-op")

	var count int64
	require.NoError(t, db.Model(&models.Staff{}).Where("role = ?", models.RoleAdmin).Count(&count).Error)
	require.EqualValues(t, 1, count)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
}

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{Driver: "postgres", User: "custodesk", Name: "custodesk"})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=localhost")
	require.Contains(t, dsn, "port=5432")
	require.Contains(t, dsn, "sslmode=disable")
}

func TestBuildMySQLDSNRequiresUser(t *testing.T) {
	_, err := buildMySQLDSN(Config{Driver: "mysql", Name: "custodesk"})
	require.Error(t, err)
}
