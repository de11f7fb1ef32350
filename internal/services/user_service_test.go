package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/isdelr/devsec-blog-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Success(t *testing.T) {
	env := newTestEnv(t)
	in := registerInput("alice")
	in.Email = "  Alice@Example.COM "

	res, err := env.users.Register(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "alice", res.User.Username)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Equal(t, models.RoleUser, res.User.Role)
	assert.False(t, res.User.IsPremium)
	assert.Empty(t, res.User.PasswordHash)

	claims, err := env.tokens.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.False(t, claims.IsPremium)
}

func TestRegister_ReservedUsernames(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"admin", "Admin", "ADMIN", "msdevsec", "MsDevSec", " admin "} {
		t.Run(name, func(t *testing.T) {
			_, err := env.users.Register(context.Background(), registerInput(name))
			assert.ErrorIs(t, err, ErrReservedUsername)
		})
	}

	// Checked before validation, so a weak password does not change the outcome.
	in := registerInput("admin")
	in.Password, in.ConfirmPassword = "weak", "weak"
	_, err := env.users.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrReservedUsername)

	assert.Equal(t, 0, countRows(t, env.db, "SELECT COUNT(*) FROM users"))
}

func TestRegister_DuplicateConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "alice")

	sameName := registerInput("alice")
	sameName.Email = "other@example.com"
	_, err := env.users.Register(context.Background(), sameName)
	requireFieldError(t, err, "username")

	sameNameOtherCase := registerInput("ALICE")
	sameNameOtherCase.Email = "third@example.com"
	_, err = env.users.Register(context.Background(), sameNameOtherCase)
	requireFieldError(t, err, "username")

	sameEmail := registerInput("bob")
	sameEmail.Email = "ALICE@example.com"
	_, err = env.users.Register(context.Background(), sameEmail)
	requireFieldError(t, err, "email")

	both := registerInput("alice")
	_, err = env.users.Register(context.Background(), both)
	requireFieldError(t, err, "username")
	requireFieldError(t, err, "email")

	assert.Equal(t, 1, countRows(t, env.db, "SELECT COUNT(*) FROM users"))
}

func TestRegister_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	in := registerInput("bob")
	in.Password = "alllowercase1"
	in.ConfirmPassword = "different"
	in.Username = "bad name!"
	in.Email = "not-an-email"

	_, err := env.users.Register(context.Background(), in)
	requireFieldError(t, err, "password")
	requireFieldError(t, err, "confirmPassword")
	requireFieldError(t, err, "username")
	requireFieldError(t, err, "email")
}

func TestLogin_IdenticalFailures(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "alice")

	_, errUnknown := env.users.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: testPassword})
	_, errWrong := env.users.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "Wr0ngPassword"})

	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "alice")

	res, err := env.users.Login(context.Background(), LoginInput{Email: "ALICE@example.com", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "alice", res.User.Username)
	assert.Empty(t, res.User.PasswordHash)
	assert.NotEmpty(t, res.Token)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registerUser(t, "alice")
	ctx := context.Background()

	err := env.users.ChangePassword(ctx, alice.ID, ChangePasswordInput{
		CurrentPassword:    "N0tTheRightOne",
		NewPassword:        "N3wPassword",
		ConfirmNewPassword: "N3wPassword",
	})
	requireFieldError(t, err, "currentPassword")

	require.NoError(t, env.users.ChangePassword(ctx, alice.ID, ChangePasswordInput{
		CurrentPassword:    testPassword,
		NewPassword:        "N3wPassword",
		ConfirmNewPassword: "N3wPassword",
	}))

	_, err = env.users.Login(ctx, LoginInput{Email: "alice@example.com", Password: testPassword})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.users.Login(ctx, LoginInput{Email: "alice@example.com", Password: "N3wPassword"})
	assert.NoError(t, err)
}

func TestCreateAdmin_AllowsReservedName(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.users.CreateAdmin(context.Background(), registerInput("admin"), true)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.True(t, user.IsPremium)
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "root_admin")
	alice := env.registerUser(t, "alice")
	ctx := context.Background()

	premium := true
	updated, err := env.users.UpdateUser(ctx, admin, alice.ID, UpdateUserInput{IsPremium: &premium})
	require.NoError(t, err)
	assert.True(t, updated.IsPremium)
	assert.Equal(t, models.RoleUser, updated.Role)

	bogus := models.Role("SUPERUSER")
	_, err = env.users.UpdateUser(ctx, admin, alice.ID, UpdateUserInput{Role: &bogus})
	requireFieldError(t, err, "role")

	_, err = env.users.UpdateUser(ctx, admin, "missing", UpdateUserInput{IsPremium: &premium})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUser_CascadesContent(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "root_admin")
	author := env.createAdmin(t, "author")
	alice := env.registerUser(t, "alice")
	ctx := context.Background()

	post := env.createPost(t, author, "Cascading Deletes", true)
	_, err := env.comments.CreateComment(ctx, alice, CreateCommentInput{PostID: post.ID, Content: "Nice post"})
	require.NoError(t, err)

	require.NoError(t, env.users.DeleteUser(ctx, admin, alice.ID))
	assert.Equal(t, 0, countRows(t, env.db, "SELECT COUNT(*) FROM comments"))

	require.NoError(t, env.users.DeleteUser(ctx, admin, author.ID))
	assert.Equal(t, 0, countRows(t, env.db, "SELECT COUNT(*) FROM posts"))

	err = env.users.DeleteUser(ctx, admin, alice.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteUser_SelfDeletionIsRecorded(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "root_admin")
	ctx := context.Background()
	env.clock.Advance(time.Second)

	require.NoError(t, env.users.DeleteUser(ctx, admin, admin.ID))

	events, err := env.events.GetRecentEvents(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, "user.delete", events[0].Type)
	assert.Nil(t, events[0].ActorID)
}

func TestListUsers_Counts(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "root_admin")
	env.clock.Advance(time.Second)
	alice := env.registerUser(t, "alice")
	ctx := context.Background()

	post := env.createPost(t, admin, "Counting Things", true)
	for i := 0; i < 2; i++ {
		_, err := env.comments.CreateComment(ctx, alice, CreateCommentInput{PostID: post.ID, Content: "hello"})
		require.NoError(t, err)
	}

	users, err := env.users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	// Newest first.
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, 0, users[0].Count.Posts)
	assert.Equal(t, 2, users[0].Count.Comments)
	assert.Equal(t, "root_admin", users[1].Username)
	assert.Equal(t, 1, users[1].Count.Posts)

	detail, err := env.users.GetUserDetail(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Posts)
	assert.Len(t, detail.Comments, 2)
}
