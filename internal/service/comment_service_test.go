package service

import (
	"context"
	"testing"

	"threads/internal/models"
	"threads/internal/notifications"
	"threads/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService_CreateComment(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	post := testutil.CreatePost(t, f.db, alice.ID, "post")

	client, err := f.hub.Register(alice.ID, nil)
	require.NoError(t, err)
	defer f.hub.UnregisterClient(client)

	comment, err := f.comments.CreateComment(ctx, bob.ID, post.ID, "  great  ")
	require.NoError(t, err)
	assert.Equal(t, "great", comment.Text)
	require.NotNil(t, comment.User)
	assert.Equal(t, bob.Username, comment.User.Username)

	ev := receive(t, client)
	assert.Equal(t, notifications.EventComment, ev.Type)
	assert.Equal(t, comment.ID, ev.CommentID)

	_, err = f.comments.CreateComment(ctx, bob.ID, post.ID, "   ")
	assert.True(t, models.HasCode(err, models.CodeValidation))
	assert.Equal(t, "Comment text is required", err.Error())

	_, err = f.comments.CreateComment(ctx, bob.ID, 9999, "orphan")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	comments, err := f.comments.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, comment.ID, comments[0].ID)
}

func TestCommentService_DeleteComment(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "owner")
	writer := testutil.CreateUser(t, f.db, "writer")
	stranger := testutil.CreateUser(t, f.db, "stranger")
	post := testutil.CreatePost(t, f.db, owner.ID, "post")

	first, err := f.comments.CreateComment(ctx, writer.ID, post.ID, "first")
	require.NoError(t, err)
	second, err := f.comments.CreateComment(ctx, writer.ID, post.ID, "second")
	require.NoError(t, err)

	err = f.comments.DeleteComment(ctx, stranger.ID, first.ID)
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	require.NoError(t, f.comments.DeleteComment(ctx, writer.ID, first.ID))
	require.NoError(t, f.comments.DeleteComment(ctx, owner.ID, second.ID))

	err = f.comments.DeleteComment(ctx, writer.ID, first.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
