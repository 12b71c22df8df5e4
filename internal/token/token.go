package token

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

const ttl = 24 * time.Hour

func Sign(c context.Context, secretKey string, subject string, now time.Time) (string, error) {
	_, span := otel.Tracer.Start(c, "token Sign")
	defer span.End()

	token := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{constants.AudienceUser},
			Issuer:    constants.AppUserService,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	)
	signed, err := token.SignedString([]byte(secretKey))
	if err != nil {
		err = fmt.Errorf("failed signing token with error=%w", err)
		otel.RecordError(err, span)
		return "", err
	}
	return signed, nil
}

// Verify parses an HS256 token issued by Sign and returns its subject.
func Verify(c context.Context, secretKey string, token string) (string, error) {
	c, span := otel.Tracer.Start(c, "token Verify")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "token Verify").
		Str(log.KeyProcess, "parsing claims").
		Logger()

	logger.Trace().Msg("parsing claims")
	claims := jwt.RegisteredClaims{}
	jwtToken, err := jwt.ParseWithClaims(token,
		&claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		},
		jwt.WithAudience(constants.AudienceUser),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(constants.AppUserService),
	)
	if err != nil {
		err = fmt.Errorf("%w: %w", inErrors.ErrTokenInvalid, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return "", err
	}
	if !jwtToken.Valid {
		otel.RecordError(inErrors.ErrTokenInvalid, span)
		return "", inErrors.ErrTokenInvalid
	}
	logger.Trace().Msg("parsed claims")

	if claims.Subject == "" {
		otel.RecordError(inErrors.ErrEmptySubject, span)
		return "", inErrors.ErrEmptySubject
	}
	return claims.Subject, nil
}

type subjectKey struct{}

func AttachSubject(c context.Context, subject string) context.Context {
	return context.WithValue(c, subjectKey{}, subject)
}

// SubjectFromContext reports the verified token subject, if the request carried a token.
func SubjectFromContext(c context.Context) (string, bool) {
	subject, ok := c.Value(subjectKey{}).(string)
	return subject, ok && subject != ""
}
