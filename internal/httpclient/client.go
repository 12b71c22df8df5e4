package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

const maxBodySize = 4 << 20

var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrDecodeBody       = errors.New("undecodable response body")
)

// StatusError is returned for every non-2xx response. Message holds the "message" field of
// the error envelope when the body has one.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %d", ErrUnexpectedStatus.Error(), e.StatusCode)
	}
	return fmt.Sprintf("%s %d: %s", ErrUnexpectedStatus.Error(), e.StatusCode, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// StatusCode reports the HTTP status carried by err, or 0 when err is not a StatusError.
func StatusCode(err error) int {
	statusErr := &StatusError{}
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

type TokenSource interface {
	Token(c context.Context) (string, bool)
}

type Option func(*Client)

func WithTimeout(timeout time.Duration) Option {
	return func(cl *Client) {
		if timeout > 0 {
			cl.http.Timeout = timeout
		}
	}
}

// WithBreaker opens the circuit after failures consecutive failed calls and lets a trial call through
// after cooldown. Responses with a 4xx status do not count as failures.
func WithBreaker(name string, failures uint32, cooldown time.Duration) Option {
	return func(cl *Client) {
		cl.breaker = newBreaker(name, failures, cooldown)
	}
}

func WithTokenSource(tokens TokenSource) Option {
	return func(cl *Client) { cl.tokens = tokens }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(cl *Client) {
		if httpClient != nil {
			cl.http = httpClient
		}
	}
}

// Client sends JSON requests to one base URL. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	tokens  TokenSource
}

func New(baseURL string, opts ...Option) *Client {
	cl := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
		breaker: newBreaker(baseURL, 5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

func newBreaker(name string, failures uint32, cooldown time.Duration) *gobreaker.CircuitBreaker[[]byte] {
	if failures == 0 {
		failures = 5
	}
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    name,
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			code := StatusCode(err)
			return code >= 400 && code < 500
		},
	})
}

// Do sends body as JSON to baseURL+path and decodes the response into out when out is
// non-nil.
func (cl *Client) Do(c context.Context, method string, path string, body any, out any) error {
	c, span := otel.Tracer.Start(c, "Client Do")
	defer span.End()

	url := cl.baseURL + path
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.url", url))

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client Do").
		Str(log.KeyRequestMethod, method).
		Str(log.KeyRequestURL, url).
		Logger()

	var reader io.Reader
	if body != nil {
		logger = logger.With().Str(log.KeyProcess, "marshaling request body").Logger()
		payload, err := json.Marshal(body)
		if err != nil {
			err = fmt.Errorf("failed marshaling request body with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
		reader = bytes.NewReader(payload)
	}

	logger = logger.With().Str(log.KeyProcess, "building request").Logger()
	req, err := http.NewRequestWithContext(c, method, url, reader)
	if err != nil {
		err = fmt.Errorf("failed building request with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	req.Header.Set("Accept", inHttp.HeaderValueJson)
	if body != nil {
		req.Header.Set(inHttp.HeaderContentType, inHttp.HeaderValueJson)
	}
	if requestID := log.RequestIDFromContext(c); requestID != "" {
		req.Header.Set(inHttp.HeaderRequestID, requestID)
	}
	if cl.tokens != nil {
		if token, ok := cl.tokens.Token(c); ok {
			req.Header.Set(inHttp.HeaderAuthorization, "Bearer "+token)
		}
	}

	logger = logger.With().Str(log.KeyProcess, "sending request").Logger()
	logger.Trace().Msg("sending request")
	raw, err := cl.breaker.Execute(func() ([]byte, error) {
		resp, err := cl.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, fmt.Errorf("failed reading response body with error=%w", err)
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			envelope := struct {
				Message string `json:"message"`
			}{}
			_ = json.Unmarshal(raw, &envelope)
			return nil, &StatusError{StatusCode: resp.StatusCode, Message: envelope.Message}
		}
		return raw, nil
	})
	if err != nil {
		err = fmt.Errorf("failed %s %s with error=%w", method, url, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("sent request")

	if out == nil {
		return nil
	}

	logger = logger.With().Str(log.KeyProcess, "decoding response body").Logger()
	if err := json.Unmarshal(raw, out); err != nil {
		err = fmt.Errorf("%w: %w", ErrDecodeBody, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	return nil
}
