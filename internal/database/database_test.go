package database

import (
	"context"
	"testing"

	"threads/internal/config"
	"threads/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openMemory(t)
	require.NoError(t, configurePool(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
}

func TestApplySchema_SQLiteUsesAutoMigrate(t *testing.T) {
	db := openMemory(t)
	cfg := &config.Config{Env: "production", DBDriver: "sqlite"}

	require.NoError(t, ApplySchema(context.Background(), db, cfg))

	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model), "%T table missing", model)
	}
}

func TestFollowTable_RejectsSelfAndDuplicateEdges(t *testing.T) {
	db := openMemory(t)
	require.NoError(t, AutoMigrate(db))

	alice := models.User{Email: "alice@example.com", Username: "alice", Password: "x"}
	bob := models.User{Email: "bob@example.com", Username: "bob", Password: "x"}
	require.NoError(t, db.Create(&alice).Error)
	require.NoError(t, db.Create(&bob).Error)

	assert.Error(t, db.Create(&models.Follow{FollowerID: alice.ID, FollowingID: alice.ID}).Error)

	require.NoError(t, db.Create(&models.Follow{FollowerID: alice.ID, FollowingID: bob.ID}).Error)
	err := db.Create(&models.Follow{FollowerID: alice.ID, FollowingID: bob.ID}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestEmbeddedMigrationsRegistered(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "init", all[0].Name)
	assert.Contains(t, all[0].UpScript, "CREATE TABLE IF NOT EXISTS follows")
	assert.Contains(t, all[0].DownScript, "DROP TABLE IF EXISTS users")

	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Version, all[i].Version)
	}

	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(9999))
	assert.Equal(t, "000001_init", all[0].String())
}

func TestRunMigrations_AppliesPendingOnce(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	registered := []Migration{
		{Version: 1, Name: "widgets", UpScript: "CREATE TABLE widgets (id INTEGER PRIMARY KEY);", DownScript: "DROP TABLE widgets;"},
		{Version: 2, Name: "gadgets", UpScript: "CREATE TABLE gadgets (id INTEGER PRIMARY KEY);", DownScript: "DROP TABLE gadgets;"},
	}

	require.NoError(t, runMigrations(ctx, db, registered))
	require.NoError(t, runMigrations(ctx, db, registered))

	applied, err := NewMigrationStore(db).AppliedVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)
	assert.True(t, db.Migrator().HasTable("widgets"))
	assert.True(t, db.Migrator().HasTable("gadgets"))

	require.NoError(t, NewMigrationStore(db).Revert(ctx, registered[1]))
	assert.False(t, db.Migrator().HasTable("gadgets"))

	applied, err = NewMigrationStore(db).AppliedVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}

	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))

	err := validateAppliedVersions([]int{1, 7, 5}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000005, 000007")
}

func TestStatus_ReportsUnappliedOnFreshDatabase(t *testing.T) {
	db := openMemory(t)

	statuses, err := Status(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, statuses, len(GetMigrations()))
	for _, s := range statuses {
		assert.False(t, s.Applied)
	}
}
