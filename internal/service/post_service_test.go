package service

import (
	"context"
	"testing"

	"threads/internal/models"
	"threads/internal/notifications"
	"threads/internal/repository"
	"threads/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type removedImages struct {
	paths []string
}

func (r *removedImages) Delete(publicPath string) error {
	r.paths = append(r.paths, publicPath)
	return nil
}

type contentFixture struct {
	db       *gorm.DB
	hub      *notifications.Hub
	images   *removedImages
	posts    *PostService
	comments *CommentService
}

func newContentFixture(t *testing.T) *contentFixture {
	t.Helper()
	db := testutil.NewDB(t)
	hub := notifications.NewHub()
	notifier := notifications.NewNotifier(nil, hub)
	images := &removedImages{}

	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepository(db)
	return &contentFixture{
		db:     db,
		hub:    hub,
		images: images,
		posts: NewPostService(postRepo, repository.NewLikeRepository(db), repository.NewFollowRepository(db),
			userRepo, images, notifier, nil),
		comments: NewCommentService(repository.NewCommentRepository(db), postRepo, userRepo, notifier, nil),
	}
}

func strPtr(s string) *string { return &s }

func TestPostService_CreatePost(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")

	post, err := f.posts.CreatePost(ctx, alice.ID, CreatePostInput{Text: "  hello  "})
	require.NoError(t, err)
	assert.Equal(t, "hello", post.Text)
	assert.Nil(t, post.Image)
	require.NotNil(t, post.Author)
	assert.Equal(t, alice.Username, post.Author.Username)

	post, err = f.posts.CreatePost(ctx, alice.ID, CreatePostInput{Image: strPtr("uploads/a.png")})
	require.NoError(t, err)
	require.NotNil(t, post.Image)
	assert.Equal(t, "uploads/a.png", *post.Image)

	_, err = f.posts.CreatePost(ctx, alice.ID, CreatePostInput{Text: "   ", Image: strPtr("")})
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestPostService_ListAndGet(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	first := testutil.CreatePost(t, f.db, alice.ID, "first")
	second := testutil.CreatePost(t, f.db, alice.ID, "second")

	posts, err := f.posts.ListPosts(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, first.ID, posts[1].ID)

	page, err := f.posts.ListPosts(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)

	got, err := f.posts.GetPost(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Text)

	_, err = f.posts.GetPost(ctx, 9999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostService_Feed(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	carol := testutil.CreateUser(t, f.db, "carol")
	bobPost := testutil.CreatePost(t, f.db, bob.ID, "from bob")
	testutil.CreatePost(t, f.db, carol.ID, "from carol")

	feed, err := f.posts.GetPostsFromFollowing(ctx, alice.ID, 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, feed)
	assert.Empty(t, feed)

	testutil.CreateFollow(t, f.db, alice.ID, bob.ID)
	_, err = f.comments.CreateComment(ctx, carol.ID, bobPost.ID, "nice")
	require.NoError(t, err)

	feed, err = f.posts.GetPostsFromFollowing(ctx, alice.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, bobPost.ID, feed[0].ID)
	require.NotNil(t, feed[0].Author)
	assert.Equal(t, bob.Username, feed[0].Author.Username)
	require.Len(t, feed[0].Comments, 1)
	require.NotNil(t, feed[0].Comments[0].User)
	assert.Equal(t, carol.Username, feed[0].Comments[0].User.Username)
}

func TestPostService_DeletePost(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")

	post, err := f.posts.CreatePost(ctx, alice.ID, CreatePostInput{Text: "bye", Image: strPtr("uploads/x.png")})
	require.NoError(t, err)
	_, err = f.posts.LikePost(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	_, err = f.comments.CreateComment(ctx, bob.ID, post.ID, "hi")
	require.NoError(t, err)

	err = f.posts.DeletePost(ctx, bob.ID, post.ID)
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	require.NoError(t, f.posts.DeletePost(ctx, alice.ID, post.ID))
	assert.Equal(t, []string{"uploads/x.png"}, f.images.paths)

	var likes, comments int64
	require.NoError(t, f.db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likes).Error)
	require.NoError(t, f.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments).Error)
	assert.Zero(t, likes)
	assert.Zero(t, comments)

	err = f.posts.DeletePost(ctx, alice.ID, post.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostService_LikeUnlike(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	post := testutil.CreatePost(t, f.db, alice.ID, "like me")

	client, err := f.hub.Register(alice.ID, nil)
	require.NoError(t, err)
	defer f.hub.UnregisterClient(client)

	like, err := f.posts.LikePost(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, like.PostID)
	assert.Equal(t, bob.ID, like.UserID)

	ev := receive(t, client)
	assert.Equal(t, notifications.EventLike, ev.Type)
	assert.Equal(t, post.ID, ev.PostID)

	_, err = f.posts.LikePost(ctx, bob.ID, post.ID)
	assert.True(t, models.HasCode(err, models.CodeConflict))

	_, err = f.posts.LikePost(ctx, bob.ID, 9999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	require.NoError(t, f.posts.UnlikePost(ctx, bob.ID, post.ID))
	err = f.posts.UnlikePost(ctx, bob.ID, post.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.Equal(t, "No like found for this post by this user", err.Error())
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, 0, 0},
		{0, 30, 0, 0},
		{-5, -1, 0, 0},
		{20, 40, 20, 40},
		{MaxPageSize + 1, 0, MaxPageSize, 0},
	}
	for _, tt := range tests {
		limit, offset := normalizePage(tt.limit, tt.offset)
		assert.Equal(t, tt.wantLimit, limit)
		assert.Equal(t, tt.wantOffset, offset)
	}
}
