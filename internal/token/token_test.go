package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

func TestSignAndVerify(t *testing.T) {
	c := context.Background()

	signed, err := Sign(c, "secret", "user-1", time.Now())
	require.NoError(t, err)

	subject, err := Verify(c, "secret", signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
}

func TestVerify(t *testing.T) {
	c := context.Background()
	expired, err := Sign(c, "secret", "user-1", time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	valid, err := Sign(c, "secret", "user-1", time.Now())
	require.NoError(t, err)

	tests := []struct {
		name        string
		secret      string
		token       string
		expectedErr error
	}{
		{name: "given wrong secret should return invalid token", secret: "other", token: valid, expectedErr: inErrors.ErrTokenInvalid},
		{name: "given expired token should return invalid token", secret: "secret", token: expired, expectedErr: inErrors.ErrTokenInvalid},
		{name: "given garbage should return invalid token", secret: "secret", token: "not-a-token", expectedErr: inErrors.ErrTokenInvalid},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Verify(c, test.secret, test.token)
			assert.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestSubjectFromContext(t *testing.T) {
	_, ok := SubjectFromContext(context.Background())
	assert.False(t, ok)

	subject, ok := SubjectFromContext(AttachSubject(context.Background(), "user-1"))
	assert.True(t, ok)
	assert.Equal(t, "user-1", subject)
}
