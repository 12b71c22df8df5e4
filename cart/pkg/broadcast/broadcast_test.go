package broadcast

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case event, ok := <-events:
		require.True(t, ok, "channel closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestBroadcasters(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	broadcasters := map[string]Broadcaster{
		"local": NewLocal(),
		"redis": NewRedis(client, "test:cart:events"),
		"file":  NewFile(filepath.Join(t.TempDir(), "cart-events.log")),
	}
	for name, broadcaster := range broadcasters {
		t.Run(name, func(t *testing.T) {
			c, cancel := context.WithCancel(context.Background())
			defer cancel()

			first, err := broadcaster.Subscribe(c)
			require.NoError(t, err)
			second, err := broadcaster.Subscribe(c)
			require.NoError(t, err)

			expected := Event{
				Origin: "instance-a",
				Kind:   KindCartChanged,
				UserID: "u1",
				At:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			}
			require.NoError(t, broadcaster.Publish(c, expected))

			for _, events := range []<-chan Event{first, second} {
				actual := receive(t, events)
				assert.Equal(t, expected.Origin, actual.Origin)
				assert.Equal(t, expected.Kind, actual.Kind)
				assert.Equal(t, expected.UserID, actual.UserID)
				assert.True(t, expected.At.Equal(actual.At))
			}
		})
	}
}

func TestLocalClosesOnCancel(t *testing.T) {
	local := NewLocal()
	c, cancel := context.WithCancel(context.Background())
	events, err := local.Subscribe(c)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription was not closed")
	}

	assert.NoError(t, local.Publish(context.Background(), Event{Kind: KindSessionChanged}))
}

func TestRedisSkipsMalformedPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c, cancel := context.WithCancel(context.Background())
	defer cancel()

	broadcaster := NewRedis(client, "events")
	events, err := broadcaster.Subscribe(c)
	require.NoError(t, err)

	require.NoError(t, client.Publish(c, "events", "not json").Err())
	require.NoError(t, broadcaster.Publish(c, Event{Origin: "b", Kind: KindSessionChanged}))

	actual := receive(t, events)
	assert.Equal(t, "b", actual.Origin)
	assert.Equal(t, KindSessionChanged, actual.Kind)
}

func TestFileAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events", "cart-events.log")
	tests := []struct {
		name    string
		publish func(t *testing.T, publisher *File)
	}{
		{
			name: "given event from another instance should deliver it",
			publish: func(t *testing.T, publisher *File) {
				require.NoError(t, publisher.Publish(context.Background(), Event{Origin: "b", Kind: KindCartChanged, UserID: "u1"}))
			},
		},
		{
			name: "given malformed line should skip it",
			publish: func(t *testing.T, publisher *File) {
				file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
				require.NoError(t, err)
				_, err = file.WriteString("not json\n")
				require.NoError(t, err)
				require.NoError(t, file.Close())
				require.NoError(t, publisher.Publish(context.Background(), Event{Origin: "b", Kind: KindCartChanged, UserID: "u1"}))
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, cancel := context.WithCancel(context.Background())
			defer cancel()

			subscriber := NewFile(path)
			publisher := NewFile(path)

			events, err := subscriber.Subscribe(c)
			require.NoError(t, err)

			test.publish(t, publisher)

			actual := receive(t, events)
			assert.Equal(t, "b", actual.Origin)
			assert.Equal(t, KindCartChanged, actual.Kind)
			assert.Equal(t, "u1", actual.UserID)
		})
	}
}

func TestFileSkipsEventsBeforeSubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart-events.log")
	c, cancel := context.WithCancel(context.Background())
	defer cancel()

	publisher := NewFile(path)
	require.NoError(t, publisher.Publish(c, Event{Origin: "old", Kind: KindCartChanged}))

	events, err := NewFile(path).Subscribe(c)
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(c, Event{Origin: "new", Kind: KindSessionChanged}))

	actual := receive(t, events)
	assert.Equal(t, "new", actual.Origin)
	assert.Equal(t, KindSessionChanged, actual.Kind)
}

func TestFileClosesOnCancel(t *testing.T) {
	c, cancel := context.WithCancel(context.Background())
	events, err := NewFile(filepath.Join(t.TempDir(), "cart-events.log")).Subscribe(c)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription was not closed")
	}
}
