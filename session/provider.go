package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

type Provider interface {
	CurrentUserID(c context.Context) (string, error)
}

// StorageProvider resolves the session from the KeyUser entry of a Storage.
type StorageProvider struct {
	storage Storage
}

func NewStorageProvider(storage Storage) *StorageProvider {
	return &StorageProvider{storage: storage}
}

func (p *StorageProvider) Current(c context.Context) (Value, error) {
	c, span := otel.Tracer.Start(c, "StorageProvider Current")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "StorageProvider Current").
		Str(log.KeySessionKey, KeyUser).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "reading session").Logger()
	logger.Trace().Msg("reading session")
	raw, err := p.storage.Get(c, KeyUser)
	if errors.Is(err, ErrNotFound) {
		logger.Trace().Msg("session not found")
		return nil, ErrNoSession
	}
	if err != nil {
		err = fmt.Errorf("failed reading session with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	value, ok := Parse(raw)
	if !ok {
		logger.Trace().Msg("session is empty")
		return nil, ErrNoSession
	}
	logger.Trace().Str(log.KeyUserID, value.UserID()).Msg("read session")
	return value, nil
}

func (p *StorageProvider) CurrentUserID(c context.Context) (string, error) {
	value, err := p.Current(c)
	if err != nil {
		return "", err
	}
	return value.UserID(), nil
}

// Token returns the bearer token saved at login, if any.
func (p *StorageProvider) Token(c context.Context) (string, bool) {
	value, err := p.Current(c)
	if err != nil {
		return "", false
	}
	parsed, ok := value.(Parsed)
	if !ok || parsed.Token == "" {
		return "", false
	}
	return parsed.Token, true
}

func (p *StorageProvider) Save(c context.Context, value Value) error {
	c, span := otel.Tracer.Start(c, "StorageProvider Save")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "StorageProvider Save").
		Logger()

	encoded, err := Encode(value)
	if err != nil {
		err = fmt.Errorf("failed encoding session with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "writing session").Logger()
	logger.Trace().Msg("writing session")
	if err := p.storage.Set(c, KeyUser, encoded); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Str(log.KeyUserID, value.UserID()).Msg("wrote session")
	return nil
}

func (p *StorageProvider) Clear(c context.Context) error {
	c, span := otel.Tracer.Start(c, "StorageProvider Clear")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "StorageProvider Clear").
		Str(log.KeyProcess, "deleting session").
		Logger()

	logger.Trace().Msg("deleting session")
	if err := p.storage.Delete(c, KeyUser); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("deleted session")
	return nil
}
