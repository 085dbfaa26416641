package seed

import (
	"context"
	"testing"

	"threads/internal/models"
	"threads/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeeder_Run(t *testing.T) {
	db := testutil.NewDB(t)
	s, err := NewSeeder(db, Options{SkipBcrypt: true, Seed: 42})
	require.NoError(t, err)

	res, err := s.Run(context.Background(), 6, 20)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Users)
	assert.Equal(t, 20, res.Posts)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 6, count)
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.EqualValues(t, 20, count)
	require.NoError(t, db.Model(&models.Follow{}).Count(&count).Error)
	assert.EqualValues(t, res.Follows, count)

	var selfFollows int64
	require.NoError(t, db.Model(&models.Follow{}).Where("follower_id = following_id").Count(&selfFollows).Error)
	assert.Zero(t, selfFollows)

	var selfLikes int64
	require.NoError(t, db.Table("likes").
		Joins("JOIN posts ON posts.id = likes.post_id").
		Where("posts.author_id = likes.user_id").
		Count(&selfLikes).Error)
	assert.Zero(t, selfLikes)
}

func TestSeeder_PasswordWorks(t *testing.T) {
	db := testutil.NewDB(t)
	f, err := NewFactory(db, Options{SkipBcrypt: true, Seed: 7})
	require.NoError(t, err)

	u, err := f.CreateUser(func(u *models.User) { u.Username = "seeded" })
	require.NoError(t, err)
	assert.Equal(t, "seeded", u.Username)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(DefaultPassword)))
}

func TestSeeder_ClearAll(t *testing.T) {
	db := testutil.NewDB(t)
	s, err := NewSeeder(db, Options{SkipBcrypt: true, Seed: 1})
	require.NoError(t, err)
	_, err = s.Run(context.Background(), 3, 5)
	require.NoError(t, err)

	require.NoError(t, s.ClearAll(context.Background()))

	for _, model := range []any{&models.User{}, &models.Post{}, &models.Follow{}, &models.Like{}, &models.Comment{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T", model)
	}
}
