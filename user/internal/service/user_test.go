package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/token"
	"github.com/Alturino/storefront/user/internal/repository"
	"github.com/Alturino/storefront/user/pkg/request"
)

type fakeQueries struct {
	users map[string]repository.User
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{users: map[string]repository.User{}}
}

func (f *fakeQueries) InsertUser(_ context.Context, arg repository.InsertUserParams) (repository.User, error) {
	user := repository.User{
		ID:       arg.ID,
		Name:     arg.Name,
		Mobile:   arg.Mobile,
		Username: arg.Username,
		Password: arg.Password,
		Role:     arg.Role,
	}
	f.users[arg.Username] = user
	return user, nil
}

func (f *fakeQueries) FindUserByUsername(_ context.Context, username string) (repository.User, error) {
	user, ok := f.users[username]
	if !ok {
		return repository.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeQueries) FindUserById(_ context.Context, id uuid.UUID) (repository.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return repository.User{}, pgx.ErrNoRows
}

var asha = request.Signup{Name: "Asha", Mobile: "9876543210", Username: "asha", Password: "secret1"}

func TestSignup(t *testing.T) {
	queries := newFakeQueries()
	svc := NewUserService(queries, "secret")

	user, err := svc.Signup(context.Background(), asha)
	require.NoError(t, err)
	assert.Equal(t, "asha", user.Username)
	assert.Equal(t, "user", user.Role)
	assert.NotEqual(t, asha.Password, queries.users["asha"].Password)

	_, err = svc.Signup(context.Background(), asha)
	assert.ErrorIs(t, err, inErrors.ErrUserAlreadyExists)
	assert.Equal(t, "User already exists", inErrors.ErrUserAlreadyExists.Error())
}

func TestLogin(t *testing.T) {
	svc := NewUserService(newFakeQueries(), "secret")
	signedUp, err := svc.Signup(context.Background(), asha)
	require.NoError(t, err)

	tests := []struct {
		name        string
		param       request.Login
		expectedErr error
	}{
		{name: "given valid credentials should login", param: request.Login{Username: "asha", Password: "secret1"}},
		{
			name:        "given wrong password should fail",
			param:       request.Login{Username: "asha", Password: "wrong"},
			expectedErr: inErrors.ErrPasswordMismatch,
		},
		{
			name:        "given unknown username should fail",
			param:       request.Login{Username: "ghost", Password: "secret1"},
			expectedErr: inErrors.ErrPasswordMismatch,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			login, err := svc.Login(context.Background(), test.param)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, signedUp.ID, login.User.ID)

			subject, err := token.Verify(context.Background(), "secret", login.Token)
			require.NoError(t, err)
			assert.Equal(t, signedUp.ID, subject)
		})
	}
}

func TestFindUserById(t *testing.T) {
	svc := NewUserService(newFakeQueries(), "secret")
	signedUp, err := svc.Signup(context.Background(), asha)
	require.NoError(t, err)

	found, err := svc.FindUserById(context.Background(), signedUp.ID)
	require.NoError(t, err)
	assert.Equal(t, "9876543210", found.Mobile)

	_, err = svc.FindUserById(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, inErrors.ErrUserNotFound)

	_, err = svc.FindUserById(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, inErrors.ErrUserNotFound)
}
