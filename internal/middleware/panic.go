package middleware

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

func RecoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, span := otel.Tracer.Start(r.Context(), "middleware RecoverPanic")
		defer span.End()

		logger := zerolog.Ctx(c).With().Str(log.KeyTag, "middleware RecoverPanic").Logger()
		defer func() {
			if rec := recover(); rec != nil {
				err := errors.Errorf("recovered from panic: %v", rec)
				logger.Error().Stack().Err(err).Msg("recovered from panic")
				otel.RecordError(err, span)
				inHttp.WriteJsonError(c, w, http.StatusInternalServerError, errors.New("Internal Server Error"))
			}
		}()

		next.ServeHTTP(w, r.WithContext(c))
	})
}
