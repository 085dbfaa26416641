package main

import (
	"bytes"
	"fmt"
	"testing"

	"threads/internal/models"
	"threads/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func runAdmin(t *testing.T, db *gorm.DB, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := &app{out: &out}
	a.wire(db, nil, nil)

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAdmin_UsersListAndShow(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	testutil.CreateFollow(t, db, alice.ID, bob.ID)

	out, err := runAdmin(t, db, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, alice.Username)
	assert.Contains(t, out, bob.Username)

	out, err = runAdmin(t, db, "users", "show", fmt.Sprint(bob.ID))
	require.NoError(t, err)
	assert.Contains(t, out, bob.Email)
	assert.Regexp(t, `Followers\s*│\s*1`, out)

	_, err = runAdmin(t, db, "users", "show", "abc")
	assert.Error(t, err)
}

func TestAdmin_Follows(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	testutil.CreateFollow(t, db, alice.ID, bob.ID)

	out, err := runAdmin(t, db, "follows", fmt.Sprint(alice.ID))
	require.NoError(t, err)
	assert.Contains(t, out, bob.Username)

	out, err = runAdmin(t, db, "follows", fmt.Sprint(bob.ID), "--followers")
	require.NoError(t, err)
	assert.Contains(t, out, alice.Username)
}

func TestAdmin_DeleteRequiresConfirmation(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	testutil.CreatePost(t, db, alice.ID, "bye")

	_, err := runAdmin(t, db, "users", "delete", fmt.Sprint(alice.ID))
	assert.Error(t, err)

	out, err := runAdmin(t, db, "users", "delete", fmt.Sprint(alice.ID), "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted user")

	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Where("author_id = ?", alice.ID).Count(&posts).Error)
	assert.Zero(t, posts)
}
