package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/token"
)

// Auth verifies a bearer token when one is sent and attaches its subject to the request
// context. Requests without an Authorization header pass through untouched.
func Auth(secretKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context()).With().Str(log.KeyTag, "middleware Auth").Logger()
			c := logger.WithContext(r.Context())

			authorization := r.Header.Get(inHttp.HeaderAuthorization)
			if authorization == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, rawToken, found := strings.Cut(authorization, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || rawToken == "" {
				logger.Error().Err(inErrors.ErrEmptyAuth).Msg(inErrors.ErrEmptyAuth.Error())
				inHttp.WriteJsonError(c, w, http.StatusUnauthorized, inErrors.ErrEmptyAuth)
				return
			}

			subject, err := token.Verify(c, secretKey, rawToken)
			if err != nil {
				logger.Error().Err(err).Msg(err.Error())
				inHttp.WriteJsonError(c, w, http.StatusUnauthorized, inErrors.ErrTokenInvalid)
				return
			}

			c = token.AttachSubject(c, subject)
			next.ServeHTTP(w, r.WithContext(c))
		})
	}
}
