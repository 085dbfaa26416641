package repository

import (
	"context"
	"testing"

	"threads/internal/models"
	"threads/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndLookup(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Email: "alice@example.com", Username: "alice", Password: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	require.NotZero(t, user.ID)

	t.Run("GetByID", func(t *testing.T) {
		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
	})

	t.Run("GetByID missing", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 9999)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})

	t.Run("GetByEmail missing returns nil", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("FindByEmailOrUsername matches either field", func(t *testing.T) {
		got, err := repo.FindByEmailOrUsername(ctx, "other@example.com", "alice")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, user.ID, got.ID)

		got, err = repo.FindByEmailOrUsername(ctx, "alice@example.com", "someone")
		require.NoError(t, err)
		require.NotNil(t, got)

		got, err = repo.FindByEmailOrUsername(ctx, "x@example.com", "x")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Email: "alice@example.com", Username: "alice2", Password: "hash"})
		assert.True(t, models.HasCode(err, models.CodeConflict))
	})

	t.Run("duplicate username is a conflict", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Email: "alice2@example.com", Username: "alice", Password: "hash"})
		assert.True(t, models.HasCode(err, models.CodeConflict))
	})
}

func TestUserRepository_UpdateAndPassword(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	alice.Bio = "hello"
	alice.FullName = ""
	require.NoError(t, repo.Update(ctx, alice))

	got, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Bio)
	assert.Empty(t, got.FullName)

	alice.Username = bob.Username
	err = repo.Update(ctx, alice)
	assert.True(t, models.HasCode(err, models.CodeConflict))

	require.NoError(t, repo.UpdatePassword(ctx, bob.ID, "new-hash"))
	got, err = repo.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.Password)

	err = repo.UpdatePassword(ctx, 9999, "x")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestUserRepository_SearchAndSummaries(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	for _, name := range []string{"marble", "Mark", "bookmark"} {
		require.NoError(t, repo.Create(ctx, &models.User{Email: name + "@example.com", Username: name, Password: "x"}))
	}

	results, err := repo.Search(ctx, "MAR", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "bookmark", results[2].Username, "substring matches sort after prefix matches")

	results, err = repo.Search(ctx, "mar", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	all, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	summaries, err := repo.Summaries(ctx, []uint{all[0].ID, all[1].ID, all[0].ID})
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
	assert.Equal(t, all[0].Username, summaries[all[0].ID].Username)
}

func TestUserRepository_SearchTreatsWildcardsLiterally(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	for _, name := range []string{"john_doe", "johnxdoe", "ann%", "annabel"} {
		require.NoError(t, repo.Create(ctx, &models.User{Email: name + "@example.com", Username: name, Password: "x"}))
	}

	results, err := repo.Search(ctx, "john_d", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "john_doe", results[0].Username)

	results, err = repo.Search(ctx, "ann%", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ann%", results[0].Username)

	results, err = repo.Search(ctx, `\`, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `john\_doe`, escapeLike("john_doe"))
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
}

func TestUserRepository_DeleteCascade(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	testutil.CreateFollow(t, db, alice.ID, bob.ID)
	testutil.CreateFollow(t, db, bob.ID, alice.ID)

	alicePost := testutil.CreatePost(t, db, alice.ID, "alice writes")
	bobPost := testutil.CreatePost(t, db, bob.ID, "bob writes")

	require.NoError(t, db.Create(&models.Like{UserID: bob.ID, PostID: alicePost.ID}).Error)
	require.NoError(t, db.Create(&models.Like{UserID: alice.ID, PostID: bobPost.ID}).Error)
	require.NoError(t, db.Create(&models.Comment{UserID: bob.ID, PostID: alicePost.ID, Text: "nice"}).Error)
	require.NoError(t, db.Create(&models.Comment{UserID: alice.ID, PostID: bobPost.ID, Text: "hi"}).Error)
	require.NoError(t, db.Create(&models.Comment{UserID: bob.ID, PostID: bobPost.ID, Text: "mine"}).Error)

	require.NoError(t, repo.DeleteCascade(ctx, alice.ID))

	count := func(model interface{}) int64 {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		return n
	}
	assert.Equal(t, int64(1), count(&models.User{}))
	assert.Equal(t, int64(0), count(&models.Follow{}))
	assert.Equal(t, int64(1), count(&models.Post{}))
	assert.Equal(t, int64(0), count(&models.Like{}))
	assert.Equal(t, int64(1), count(&models.Comment{}), "only bob's comment on bob's post survives")

	err := repo.DeleteCascade(ctx, alice.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
