// Package testutil holds shared helpers for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"threads/internal/database"
	"threads/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB returns an in-memory sqlite database with every persistent table migrated.
// The pool is pinned to one connection so the in-memory schema is shared.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

var userSeq atomic.Uint64

// CreateUser inserts a user with a unique username and email derived from name.
func CreateUser(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()

	n := userSeq.Add(1)
	user := &models.User{
		Email:    fmt.Sprintf("%s%d@example.com", name, n),
		Username: fmt.Sprintf("%s%d", name, n),
		Password: "not-a-real-hash",
		FullName: name,
		Avatar:   "https://example.com/" + name + ".png",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreatePost inserts a post by authorID.
func CreatePost(t testing.TB, db *gorm.DB, authorID uint, text string) *models.Post {
	t.Helper()

	post := &models.Post{AuthorID: authorID, Text: text}
	require.NoError(t, db.Create(post).Error)
	return post
}

// CreateFollow inserts the edge follower -> following.
func CreateFollow(t testing.TB, db *gorm.DB, followerID, followingID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.Follow{FollowerID: followerID, FollowingID: followingID}).Error)
}
