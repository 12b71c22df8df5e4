package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/testutil"
)

func TestQueries(t *testing.T) {
	pool := testutil.NewPostgres(t)
	queries := New(pool)
	c := context.Background()

	param := InsertUserParams{
		ID:       uuid.New(),
		Name:     "Asha",
		Mobile:   "9876543210",
		Username: "asha",
		Password: "hash",
		Role:     "user",
	}
	inserted, err := queries.InsertUser(c, param)
	require.NoError(t, err)
	assert.Equal(t, param.ID, inserted.ID)
	assert.False(t, inserted.Response().CreatedAt.IsZero())

	byUsername, err := queries.FindUserByUsername(c, "asha")
	require.NoError(t, err)
	assert.Equal(t, param.ID, byUsername.ID)

	byID, err := queries.FindUserById(c, param.ID)
	require.NoError(t, err)
	assert.Equal(t, "asha", byID.Username)

	_, err = queries.FindUserById(c, uuid.New())
	assert.True(t, errors.Is(err, pgx.ErrNoRows))

	param.ID = uuid.New()
	_, err = queries.InsertUser(c, param)
	pgErr := &pgconn.PgError{}
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "23505", pgErr.Code)
}
