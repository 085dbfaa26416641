package service

import (
	"context"
	"testing"

	"threads/internal/cache"
	"threads/internal/models"
	"threads/internal/repository"
	"threads/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newUserService(t *testing.T, c *cache.Cache) (*UserService, *gorm.DB, *removedImages) {
	t.Helper()
	db := testutil.NewDB(t)
	images := &removedImages{}
	svc := NewUserService(repository.NewUserRepository(db), repository.NewFollowRepository(db), c, images, nil)
	return svc, db, images
}

func TestUserService_GetProfile(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	svc, db, _ := newUserService(t, cache.New(rdb))
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	testutil.CreateFollow(t, db, alice.ID, bob.ID)

	profile, err := svc.GetProfile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.Username, profile.Username)
	assert.Equal(t, int64(1), profile.FollowingCount)
	assert.Equal(t, int64(0), profile.FollowerCount)
	assert.True(t, mr.Exists(cache.UserKey(alice.ID)))
	assert.Equal(t, cache.UserTTL, mr.TTL(cache.UserKey(alice.ID)))

	cached, err := mr.Get(cache.UserKey(alice.ID))
	require.NoError(t, err)
	assert.NotContains(t, cached, "not-a-real-hash")

	_, err = svc.GetProfile(ctx, 9999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestUserService_UpdateProfile(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	svc, db, images := newUserService(t, cache.New(rdb))
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	_, err := svc.GetProfile(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.UserKey(alice.ID)))

	_, err = svc.UpdateProfile(ctx, bob.ID, alice.ID, UpdateProfileInput{Bio: strPtr("hijack")})
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	updated, err := svc.UpdateProfile(ctx, alice.ID, alice.ID, UpdateProfileInput{
		Username: strPtr("alice_new"),
		Bio:      strPtr("  hello  "),
		Avatar:   strPtr("uploads/new.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice_new", updated.Username)
	assert.Equal(t, "hello", updated.Bio)
	assert.Equal(t, "uploads/new.png", updated.Avatar)
	assert.Equal(t, alice.FullName, updated.FullName)
	assert.False(t, mr.Exists(cache.UserKey(alice.ID)))
	assert.Equal(t, []string{alice.Avatar}, images.paths)

	_, err = svc.UpdateProfile(ctx, bob.ID, bob.ID, UpdateProfileInput{Username: strPtr("alice_new")})
	assert.True(t, models.HasCode(err, models.CodeConflict))

	_, err = svc.UpdateProfile(ctx, bob.ID, bob.ID, UpdateProfileInput{Username: strPtr("has space")})
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestUserService_SearchAndLookup(t *testing.T) {
	svc, db, _ := newUserService(t, nil)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	testutil.CreateUser(t, db, "malice")
	testutil.CreateUser(t, db, "bob")

	results, err := svc.SearchUsers(ctx, "ALI", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, alice.ID, results[0].ID)

	_, err = svc.SearchUsers(ctx, "  ", 0)
	assert.True(t, models.HasCode(err, models.CodeValidation))

	user, err := svc.GetByUsername(ctx, alice.Username)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)

	_, err = svc.GetByUsername(ctx, "ghost")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	all, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUserService_DeleteUserCascades(t *testing.T) {
	svc, db, _ := newUserService(t, nil)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	alicePost := testutil.CreatePost(t, db, alice.ID, "mine")
	bobPost := testutil.CreatePost(t, db, bob.ID, "theirs")
	testutil.CreateFollow(t, db, alice.ID, bob.ID)
	testutil.CreateFollow(t, db, bob.ID, alice.ID)
	require.NoError(t, db.Create(&models.Like{UserID: bob.ID, PostID: alicePost.ID}).Error)
	require.NoError(t, db.Create(&models.Like{UserID: alice.ID, PostID: bobPost.ID}).Error)
	require.NoError(t, db.Create(&models.Comment{UserID: bob.ID, PostID: alicePost.ID, Text: "on alice"}).Error)
	require.NoError(t, db.Create(&models.Comment{UserID: alice.ID, PostID: bobPost.ID, Text: "by alice"}).Error)

	require.NoError(t, svc.DeleteUser(ctx, alice.ID))

	count := func(model interface{}) int64 {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		return n
	}
	assert.Equal(t, int64(1), count(&models.User{}))
	assert.Equal(t, int64(1), count(&models.Post{}))
	assert.Zero(t, count(&models.Follow{}))
	assert.Zero(t, count(&models.Like{}))
	assert.Zero(t, count(&models.Comment{}))

	err := svc.DeleteUser(ctx, alice.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
