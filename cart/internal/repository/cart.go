package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

const maxTxRetries = 8

var ErrTxConflict = errors.New("cart changed concurrently")

// Item is the stored form of a cart line. Product snapshots are resolved at read time.
type Item struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
}

// UpdateFunc receives the current items and returns the items to store.
type UpdateFunc func(items []Item) ([]Item, error)

type Repository interface {
	FindItems(c context.Context, userID string) ([]Item, error)
	UpdateItems(c context.Context, userID string, fn UpdateFunc) ([]Item, error)
	DeleteItems(c context.Context, userID string) error
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) FindItems(c context.Context, userID string) ([]Item, error) {
	c, span := otel.Tracer.Start(c, "Redis FindItems")
	defer span.End()

	key := cartKey(userID)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Redis FindItems").
		Str(log.KeyCacheKey, key).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "getting cart").Logger()
	logger.Trace().Msg("getting cart")
	items, err := readItems(c, r.client, key)
	if err != nil {
		err = fmt.Errorf("failed getting cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Int(log.KeyCartItemsLen, len(items)).Msg("got cart")

	return items, nil
}

func (r *Redis) UpdateItems(c context.Context, userID string, fn UpdateFunc) ([]Item, error) {
	c, span := otel.Tracer.Start(c, "Redis UpdateItems")
	defer span.End()

	key := cartKey(userID)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Redis UpdateItems").
		Str(log.KeyCacheKey, key).
		Logger()

	var updated []Item
	txf := func(tx *redis.Tx) error {
		current, err := readItems(c, tx, key)
		if err != nil {
			return err
		}
		updated, err = fn(current)
		if err != nil {
			return err
		}
		value, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("failed marshalling cart with error=%w", err)
		}
		_, err = tx.TxPipelined(c, func(pipe redis.Pipeliner) error {
			pipe.Set(c, key, value, 0)
			return nil
		})
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "updating cart").Logger()
	logger.Trace().Msg("updating cart")
	for range maxTxRetries {
		err := r.client.Watch(c, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			logger.Debug().Msg("cart changed while updating, retrying")
			continue
		}
		if err != nil {
			err = fmt.Errorf("failed updating cart with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		logger.Trace().Int(log.KeyCartItemsLen, len(updated)).Msg("updated cart")
		return updated, nil
	}

	err := fmt.Errorf("failed updating cart with error=%w", ErrTxConflict)
	otel.RecordError(err, span)
	logger.Error().Err(err).Msg(err.Error())
	return nil, err
}

func (r *Redis) DeleteItems(c context.Context, userID string) error {
	c, span := otel.Tracer.Start(c, "Redis DeleteItems")
	defer span.End()

	key := cartKey(userID)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Redis DeleteItems").
		Str(log.KeyCacheKey, key).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "deleting cart").Logger()
	logger.Trace().Msg("deleting cart")
	if err := r.client.Del(c, key).Err(); err != nil {
		err = fmt.Errorf("failed deleting cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("deleted cart")

	return nil
}

type getter interface {
	Get(c context.Context, key string) *redis.StringCmd
}

func readItems(c context.Context, cmd getter, key string) ([]Item, error) {
	data, err := cmd.Get(c, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, err
	}
	items := []Item{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed unmarshalling cart with error=%w", err)
	}
	return items, nil
}

// Memory keeps carts in process, for running the cart service without redis.
type Memory struct {
	mu    sync.Mutex
	carts map[string][]Item
}

func NewMemory() *Memory {
	return &Memory{carts: map[string][]Item{}}
}

func (m *Memory) FindItems(_ context.Context, userID string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.carts[userID]), nil
}

func (m *Memory) UpdateItems(_ context.Context, userID string, fn UpdateFunc) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	updated, err := fn(slices.Clone(m.carts[userID]))
	if err != nil {
		return nil, err
	}
	m.carts[userID] = slices.Clone(updated)
	return updated, nil
}

func (m *Memory) DeleteItems(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}
