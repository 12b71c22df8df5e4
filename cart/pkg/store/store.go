package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/cart/pkg/broadcast"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/validate"
	"github.com/Alturino/storefront/session"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidQuantity  = errors.New("quantity must be a positive number")
	ErrInvalidRequest   = errors.New("invalid cart request")
	ErrFetchFailed      = errors.New("failed fetching cart")
	ErrMutationFailed   = errors.New("failed mutating cart")
	ErrNoBroadcaster    = errors.New("store has no broadcaster")
)

const DefaultTimeout = 10 * time.Second

// Remote is the cart API as seen by the store.
type Remote interface {
	FetchCart(c context.Context, userID string) ([]response.CartLineItem, error)
	AddItem(c context.Context, param request.AddItem) error
	UpdateItem(c context.Context, param request.UpdateItem) error
	RemoveItem(c context.Context, param request.RemoveItem) error
	ClearCart(c context.Context, param request.ClearCart) error
}

type Snapshot struct {
	Items []response.CartLineItem
}

func (s Snapshot) ApproximateTotal() decimal.Decimal {
	return response.ApproximateTotal(s.Items)
}

type Listener func(Snapshot)

type Option func(*Store)

func WithBroadcaster(broadcaster broadcast.Broadcaster) Option {
	return func(s *Store) { s.broadcaster = broadcaster }
}

// WithClearOnFetchError decides whether a failed fetch empties the cached items. Enabled by
// default.
func WithClearOnFetchError(clear bool) Option {
	return func(s *Store) { s.clearOnFetchError = clear }
}

func WithTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func WithOrigin(origin string) Option {
	return func(s *Store) {
		if origin != "" {
			s.origin = origin
		}
	}
}

// Store caches the server's view of the current user's cart. Local state only changes from a
// server response: mutations are sent, then the cart is fetched again.
type Store struct {
	remote            Remote
	session           session.Provider
	broadcaster       broadcast.Broadcaster
	origin            string
	timeout           time.Duration
	clearOnFetchError bool

	mu        sync.RWMutex
	items     []response.CartLineItem
	listeners map[uint64]Listener
	nextID    uint64
}

func New(remote Remote, provider session.Provider, opts ...Option) *Store {
	s := &Store{
		remote:            remote,
		session:           provider,
		origin:            uuid.NewString(),
		timeout:           DefaultTimeout,
		clearOnFetchError: true,
		items:             []response.CartLineItem{},
		listeners:         map[uint64]Listener{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Origin() string {
	return s.origin
}

func (s *Store) Items() []response.CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]response.CartLineItem, len(s.items))
	copy(items, s.items)
	return items
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{Items: s.Items()}
}

// Subscribe registers fn to receive every new snapshot. The returned func unregisters it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) replace(items []response.CartLineItem) {
	if items == nil {
		items = []response.CartLineItem{}
	}

	s.mu.Lock()
	s.items = items
	snapshotItems := make([]response.CartLineItem, len(items))
	copy(snapshotItems, items)
	listeners := make([]Listener, 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(Snapshot{Items: snapshotItems})
	}
}

// Reset empties the cart without contacting the server.
func (s *Store) Reset() {
	s.replace(nil)
}

func (s *Store) currentUserID(c context.Context) (string, error) {
	userID, err := s.session.CurrentUserID(c)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}
	if userID == "" {
		return "", ErrNotAuthenticated
	}
	return userID, nil
}

// Init loads the cart when a session exists and empties it otherwise.
func (s *Store) Init(c context.Context) error {
	c, span := otel.Tracer.Start(c, "Store Init")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store Init").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "resolving session").Logger()
	if _, err := s.currentUserID(c); err != nil {
		logger.Info().Msg("no session, starting with an empty cart")
		s.replace(nil)
		return nil
	}

	c = logger.WithContext(c)
	return s.FetchCart(c)
}

func (s *Store) FetchCart(c context.Context) error {
	c, span := otel.Tracer.Start(c, "Store FetchCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store FetchCart").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "resolving session").Logger()
	logger.Trace().Msg("resolving session")
	userID, err := s.currentUserID(c)
	if err != nil {
		s.replace(nil)
		otel.RecordError(err, span)
		logger.Info().Err(err).Msg("no session, cleared cart")
		return err
	}
	logger = logger.With().Str(log.KeyUserID, userID).Logger()

	logger = logger.With().Str(log.KeyProcess, "fetching cart").Logger()
	logger.Debug().Msg("fetching cart")
	rc, cancel := context.WithTimeout(logger.WithContext(c), s.timeout)
	defer cancel()
	items, err := s.remote.FetchCart(rc, userID)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrFetchFailed, err)
		if s.clearOnFetchError {
			s.replace(nil)
		}
		otel.RecordError(err, span)
		logger.Error().Err(err).Bool("cleared", s.clearOnFetchError).Msg(err.Error())
		return err
	}
	s.replace(items)
	logger.Info().Int(log.KeyCartItemsLen, len(items)).Msg("fetched cart")

	return nil
}

func validateQuantity(quantity float64) error {
	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return ErrInvalidQuantity
	}
	return nil
}

func (s *Store) AddItem(c context.Context, productID string, quantity float64) error {
	c, span := otel.Tracer.Start(c, "Store AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store AddItem").
		Str(log.KeyProductID, productID).
		Float64(log.KeyQuantity, quantity).
		Logger()

	if err := validateQuantity(quantity); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	c = logger.WithContext(c)
	err := s.mutate(c, "adding item", func(c context.Context, userID string) (any, func(context.Context) error) {
		param := request.AddItem{UserID: userID, ProductID: productID, Quantity: quantity}
		return param, func(c context.Context) error { return s.remote.AddItem(c, param) }
	})
	otel.RecordError(err, span)
	return err
}

func (s *Store) UpdateItem(c context.Context, productID string, quantity float64) error {
	c, span := otel.Tracer.Start(c, "Store UpdateItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store UpdateItem").
		Str(log.KeyProductID, productID).
		Float64(log.KeyQuantity, quantity).
		Logger()

	if err := validateQuantity(quantity); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	c = logger.WithContext(c)
	err := s.mutate(c, "updating item", func(c context.Context, userID string) (any, func(context.Context) error) {
		param := request.UpdateItem{UserID: userID, ProductID: productID, Quantity: quantity}
		return param, func(c context.Context) error { return s.remote.UpdateItem(c, param) }
	})
	otel.RecordError(err, span)
	return err
}

func (s *Store) RemoveItem(c context.Context, productID string) error {
	c, span := otel.Tracer.Start(c, "Store RemoveItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store RemoveItem").
		Str(log.KeyProductID, productID).
		Logger()

	c = logger.WithContext(c)
	err := s.mutate(c, "removing item", func(c context.Context, userID string) (any, func(context.Context) error) {
		param := request.RemoveItem{UserID: userID, ProductID: productID}
		return param, func(c context.Context) error { return s.remote.RemoveItem(c, param) }
	})
	otel.RecordError(err, span)
	return err
}

// mutate runs one write against the server, then re-fetches the cart. build turns the user
// id into the request to validate and the call that sends it.
func (s *Store) mutate(
	c context.Context,
	process string,
	build func(c context.Context, userID string) (any, func(context.Context) error),
) error {
	logger := zerolog.Ctx(c).With().Logger()

	logger = logger.With().Str(log.KeyProcess, "resolving session").Logger()
	userID, err := s.currentUserID(c)
	if err != nil {
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger = logger.With().Str(log.KeyUserID, userID).Logger()

	param, call := build(c, userID)

	logger = logger.With().Str(log.KeyProcess, "validating request").Logger()
	if err := validate.Get().StructCtx(c, param); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger = logger.With().Str(log.KeyProcess, process).Logger()
	logger.Debug().Msg(process)
	rc, cancel := context.WithTimeout(logger.WithContext(c), s.timeout)
	defer cancel()
	if err := call(rc); err != nil {
		err = fmt.Errorf("%w: %w", ErrMutationFailed, err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("mutated cart")

	s.publish(logger.WithContext(c), broadcast.KindCartChanged, userID)

	logger = logger.With().Str(log.KeyProcess, "refetching cart").Logger()
	return s.FetchCart(logger.WithContext(c))
}

func (s *Store) ClearCart(c context.Context) error {
	c, span := otel.Tracer.Start(c, "Store ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store ClearCart").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "resolving session").Logger()
	userID, err := s.currentUserID(c)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger = logger.With().Str(log.KeyUserID, userID).Logger()

	logger = logger.With().Str(log.KeyProcess, "clearing cart").Logger()
	logger.Debug().Msg("clearing cart")
	rc, cancel := context.WithTimeout(logger.WithContext(c), s.timeout)
	defer cancel()
	if err := s.remote.ClearCart(rc, request.ClearCart{UserID: userID}); err != nil {
		err = fmt.Errorf("%w: %w", ErrMutationFailed, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	s.replace(nil)
	logger.Info().Msg("cleared cart")

	s.publish(logger.WithContext(c), broadcast.KindCartChanged, userID)
	return nil
}

func (s *Store) publish(c context.Context, kind broadcast.Kind, userID string) {
	if s.broadcaster == nil {
		return
	}

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyProcess, "publishing event").
		Str(log.KeyEvent, string(kind)).
		Logger()

	event := broadcast.Event{Origin: s.origin, Kind: kind, UserID: userID, At: time.Now().UTC()}
	if err := s.broadcaster.Publish(c, event); err != nil {
		logger.Warn().Err(err).Msg("failed publishing event")
		return
	}
	logger.Trace().Msg("published event")
}

// Sync re-fetches the cart whenever another instance reports a change, until c is done.
func (s *Store) Sync(c context.Context) error {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store Sync").
		Str(log.KeyEventOrigin, s.origin).
		Logger()

	if s.broadcaster == nil {
		return ErrNoBroadcaster
	}

	logger = logger.With().Str(log.KeyProcess, "subscribing events").Logger()
	events, err := s.broadcaster.Subscribe(c)
	if err != nil {
		err = fmt.Errorf("failed subscribing events with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("subscribed events")

	logger = logger.With().Str(log.KeyProcess, "syncing cart").Logger()
	for {
		select {
		case <-c.Done():
			logger.Info().Msg("stopped syncing")
			return nil
		case event, ok := <-events:
			if !ok {
				logger.Info().Msg("event stream closed")
				return nil
			}
			if event.Origin == s.origin {
				continue
			}
			logger.Debug().Any(log.KeyEvent, event).Msg("received change from another instance")
			if err := s.FetchCart(logger.WithContext(c)); err != nil {
				logger.Warn().Err(err).Msg("failed refetching cart after event")
			}
		}
	}
}
