package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"TuneCrate/model"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Song{}))
	return db
}

func TestPutAllAndGetAll(t *testing.T) {
	repo := NewSongRepository(testDB(t))

	songs := []*model.Song{
		{ID: "id-1", Title: "Yesterday", Artist: "The Beatles", Album: "Help!", AudioKey: "audio/id-1.mp3"},
		{ID: "id-2", Title: "Nowhere Man", Artist: "The Beatles", Album: "Rubber Soul", AudioKey: "audio/id-2.mp3"},
	}
	require.NoError(t, repo.PutAll(songs))

	got, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestPutAllEmptyIsNoop(t *testing.T) {
	repo := NewSongRepository(testDB(t))
	assert.NoError(t, repo.PutAll(nil))
}

func TestGetByID(t *testing.T) {
	repo := NewSongRepository(testDB(t))
	require.NoError(t, repo.PutAll([]*model.Song{
		{ID: "id-1", Title: "Yesterday", Artist: "The Beatles", AudioKey: "audio/id-1.mp3"},
	}))

	song, err := repo.GetByID("id-1")
	require.NoError(t, err)
	require.NotNil(t, song)
	assert.Equal(t, "Yesterday", song.Title)

	missing, err := repo.GetByID("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDuplicateUserDetected(t *testing.T) {
	repo := NewUserRepository(testDB(t))

	_, err := repo.CreateUser(&model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", Role: model.RoleListener})
	require.NoError(t, err)

	_, err = repo.CreateUser(&model.User{Username: "alice", Email: "other@example.com", PasswordHash: "x", Role: model.RoleListener})
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestGetUserByUsernameAndEmail(t *testing.T) {
	repo := NewUserRepository(testDB(t))

	id, err := repo.CreateUser(&model.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x", Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.NotZero(t, id)

	byName, err := repo.GetUserByUsername("bob")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.True(t, byName.IsAdmin())

	byEmail, err := repo.GetUserByEmail("bob@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, byName.ID, byEmail.ID)

	missing, err := repo.GetUserByUsername("nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
