package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

// Redis relays events over a redis Pub/Sub channel so instances on different hosts see
// each other's changes.
type Redis struct {
	client  *redis.Client
	channel string
}

func NewRedis(client *redis.Client, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

func (r *Redis) Publish(c context.Context, event Event) error {
	c, span := otel.Tracer.Start(c, "Redis Publish")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Redis Publish").
		Str(log.KeyChannel, r.channel).
		Any(log.KeyEvent, event).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "marshaling event").Logger()
	payload, err := json.Marshal(event)
	if err != nil {
		err = fmt.Errorf("failed marshaling event with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "publishing event").Logger()
	logger.Trace().Msg("publishing event")
	if err := r.client.Publish(c, r.channel, payload).Err(); err != nil {
		err = fmt.Errorf("failed publishing event with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Debug().Msg("published event")
	return nil
}

// Subscribe returns once redis has confirmed the subscription, so events published after
// it returns are never missed.
func (r *Redis) Subscribe(c context.Context) (<-chan Event, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Redis Subscribe").
		Str(log.KeyChannel, r.channel).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "subscribing channel").Logger()
	logger.Trace().Msg("subscribing channel")
	pubsub := r.client.Subscribe(c, r.channel)
	if _, err := pubsub.Receive(c); err != nil {
		_ = pubsub.Close()
		err = fmt.Errorf("failed subscribing channel with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("subscribed channel")

	events := make(chan Event, subscriberBuffer)
	go func() {
		defer close(events)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-c.Done():
				return
			case message, ok := <-messages:
				if !ok {
					return
				}
				event := Event{}
				if err := json.Unmarshal([]byte(message.Payload), &event); err != nil {
					err = fmt.Errorf("failed unmarshaling event with error=%w", err)
					logger.Warn().Err(err).Msg(err.Error())
					continue
				}
				select {
				case events <- event:
				case <-c.Done():
					return
				}
			}
		}
	}()

	return events, nil
}
