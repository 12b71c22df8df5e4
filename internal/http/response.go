package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

func WriteJsonResponse(
	c context.Context,
	w http.ResponseWriter,
	statusCode int,
	header map[string]string,
	body any,
) {
	c, span := otel.Tracer.Start(c, "WriteJsonResponse")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "WriteJsonResponse").
		Int(log.KeyResponseStatus, statusCode).
		Logger()

	w.Header().Set(HeaderContentType, HeaderValueJson)
	for k, v := range header {
		w.Header().Add(k, v)
	}
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
}

// WriteJsonError writes the failure envelope shared by every backend service.
func WriteJsonError(c context.Context, w http.ResponseWriter, statusCode int, err error) {
	WriteJsonResponse(c, w, statusCode, map[string]string{}, map[string]any{
		"status":  "failed",
		"message": err.Error(),
	})
}
