package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"TuneCrate/config"
	"TuneCrate/core/auth"
	"TuneCrate/model"
	"TuneCrate/repository"
)

func seedTestRepo(t *testing.T) repository.UserRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}))
	return repository.NewUserRepository(db)
}

func TestSeedAdminCreatesAccount(t *testing.T) {
	repo := seedTestRepo(t)
	cfg := &config.Config{AdminUsername: "admin", AdminPassword: "hunter2"}

	id, err := SeedAdmin(cfg, repo)
	require.NoError(t, err)
	assert.NotZero(t, id)

	user, err := repo.GetUserByUsername("admin")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, user.IsAdmin())
	assert.True(t, auth.CheckPasswordHash("hunter2", user.PasswordHash))

	// A second seed finds the existing account instead of creating another.
	again, err := SeedAdmin(cfg, repo)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestSeedAdminWithoutPasswordReturnsZero(t *testing.T) {
	repo := seedTestRepo(t)
	cfg := &config.Config{AdminUsername: "admin"}

	id, err := SeedAdmin(cfg, repo)
	require.NoError(t, err)
	assert.Zero(t, id)
}
