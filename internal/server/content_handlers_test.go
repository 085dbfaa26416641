package server

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"threads/internal/models"
	"threads/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func multipartRequest(t *testing.T, method, path, token string, fields map[string]string, fileField, fileName string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestPosts_CreateListDelete(t *testing.T) {
	s, db := newTestServer(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	aliceToken := sessionFor(t, s, alice.ID)
	bobToken := sessionFor(t, s, bob.ID)

	status, raw := call(t, s, http.MethodPost, "/posts/threads", aliceToken, map[string]string{"text": "  hello world  "})
	require.Equal(t, http.StatusCreated, status, string(raw))
	post := decode[models.Post](t, raw)
	assert.Equal(t, "hello world", post.Text)
	assert.Equal(t, alice.ID, post.AuthorID)

	status, raw = call(t, s, http.MethodPost, "/posts/threads", aliceToken, map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeValidation, decode[models.ErrorResponse](t, raw).Code)

	status, _ = call(t, s, http.MethodPost, "/posts/threads", "", map[string]string{"text": "anon"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, raw = call(t, s, http.MethodGet, "/posts/threads", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Post](t, raw), 1)

	path := fmt.Sprintf("/posts/threads/%d", post.ID)
	status, raw = call(t, s, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, post.ID, decode[models.Post](t, raw).ID)

	status, _ = call(t, s, http.MethodGet, "/posts/threads/999", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, raw = call(t, s, http.MethodGet, "/posts/threads/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid post ID", decode[models.ErrorResponse](t, raw).Error)

	status, _ = call(t, s, http.MethodDelete, fmt.Sprintf("/posts/%d", post.ID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw = call(t, s, http.MethodDelete, fmt.Sprintf("/posts/%d", post.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "Post deleted", decode[messageBody](t, raw).Message)

	status, _ = call(t, s, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPosts_MultipartImage(t *testing.T) {
	s, db := newTestServer(t)
	alice := testutil.CreateUser(t, db, "alice")
	token := sessionFor(t, s, alice.ID)

	req := multipartRequest(t, http.MethodPost, "/posts/threads", token,
		map[string]string{"text": "with picture"}, "image", "pic.png", pngBytes)
	status, raw := send(t, s, req)
	require.Equal(t, http.StatusCreated, status, string(raw))

	post := decode[models.Post](t, raw)
	require.NotNil(t, post.Image)
	assert.True(t, strings.HasPrefix(*post.Image, "uploads/"))
	stored := filepath.Join(s.uploads.Dir(), strings.TrimPrefix(*post.Image, "uploads/"))
	_, err := os.Stat(stored)
	require.NoError(t, err)

	req = multipartRequest(t, http.MethodPost, "/posts/threads", token,
		map[string]string{"text": "bad file"}, "image", "notes.png", []byte("plain text"))
	status, _ = send(t, s, req)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, s, http.MethodDelete, fmt.Sprintf("/posts/%d", post.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err))
}

func TestPosts_FollowingFeed(t *testing.T) {
	s, db := newTestServer(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")
	testutil.CreatePost(t, db, bob.ID, "from bob")
	testutil.CreatePost(t, db, carol.ID, "from carol")
	token := sessionFor(t, s, alice.ID)

	status, raw := call(t, s, http.MethodGet, "/posts/following", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)))

	testutil.CreateFollow(t, db, alice.ID, bob.ID)
	status, raw = call(t, s, http.MethodGet, "/posts/following", token, nil)
	require.Equal(t, http.StatusOK, status)
	feed := decode[[]models.Post](t, raw)
	require.Len(t, feed, 1)
	assert.Equal(t, "from bob", feed[0].Text)
}

func TestPosts_ListsAreUnboundedWithoutLimit(t *testing.T) {
	s, db := newTestServer(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	posts := make([]models.Post, 150)
	for i := range posts {
		posts[i] = models.Post{Text: fmt.Sprintf("post %d", i), AuthorID: bob.ID}
	}
	require.NoError(t, db.CreateInBatches(posts, 50).Error)
	testutil.CreateFollow(t, db, alice.ID, bob.ID)
	token := sessionFor(t, s, alice.ID)

	status, raw := call(t, s, http.MethodGet, "/posts/following", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Post](t, raw), 150)

	status, raw = call(t, s, http.MethodGet, "/posts/threads", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Post](t, raw), 150)

	status, raw = call(t, s, http.MethodGet, "/posts/following?limit=500", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Post](t, raw), maxPaginationLimit)

	status, raw = call(t, s, http.MethodGet, "/posts/threads?limit=10&offset=145", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Post](t, raw), 5)
}

func TestPosts_LikeUnlike(t *testing.T) {
	s, db := newTestServer(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	post := testutil.CreatePost(t, db, alice.ID, "like me")
	token := sessionFor(t, s, bob.ID)
	like := fmt.Sprintf("/posts/%d/like", post.ID)
	unlike := fmt.Sprintf("/posts/%d/unlike", post.ID)

	status, raw := call(t, s, http.MethodPost, like, token, nil)
	require.Equal(t, http.StatusCreated, status, string(raw))
	assert.Equal(t, bob.ID, decode[models.Like](t, raw).UserID)

	status, raw = call(t, s, http.MethodPost, like, token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeConflict, decode[models.ErrorResponse](t, raw).Code)

	status, _ = call(t, s, http.MethodPost, "/posts/999/like", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, raw = call(t, s, http.MethodDelete, unlike, token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "Post unliked", decode[messageBody](t, raw).Message)

	status, _ = call(t, s, http.MethodDelete, unlike, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestComments(t *testing.T) {
	s, db := newTestServer(t)
	owner := testutil.CreateUser(t, db, "owner")
	commenter := testutil.CreateUser(t, db, "commenter")
	stranger := testutil.CreateUser(t, db, "stranger")
	post := testutil.CreatePost(t, db, owner.ID, "discuss")
	commentsPath := fmt.Sprintf("/posts/%d/comments", post.ID)

	status, raw := call(t, s, http.MethodPost, commentsPath, sessionFor(t, s, commenter.ID), map[string]string{"text": "first"})
	require.Equal(t, http.StatusCreated, status, string(raw))
	first := decode[models.Comment](t, raw)
	assert.Equal(t, commenter.ID, first.UserID)

	status, raw = call(t, s, http.MethodPost, commentsPath, sessionFor(t, s, commenter.ID), map[string]string{"text": " "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeValidation, decode[models.ErrorResponse](t, raw).Code)

	status, _ = call(t, s, http.MethodPost, "/posts/999/comments", sessionFor(t, s, commenter.ID), map[string]string{"text": "lost"})
	assert.Equal(t, http.StatusNotFound, status)

	status, raw = call(t, s, http.MethodGet, commentsPath, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Comment](t, raw), 1)

	deletePath := fmt.Sprintf("/posts/comments/%d", first.ID)
	status, _ = call(t, s, http.MethodDelete, deletePath, sessionFor(t, s, stranger.ID), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw = call(t, s, http.MethodDelete, deletePath, sessionFor(t, s, owner.ID), nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "Comment deleted", decode[messageBody](t, raw).Message)
}
