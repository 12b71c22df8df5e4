package cmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/cart/pkg/broadcast"
	"github.com/Alturino/storefront/internal/config"
)

func TestNewBroadcaster(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tests := []struct {
		name     string
		driver   string
		cache    *redis.Client
		expected broadcast.Broadcaster
	}{
		{name: "given cache should use redis", driver: sessionDriverFile, cache: client, expected: &broadcast.Redis{}},
		{name: "given file sessions without cache should use event file", driver: sessionDriverFile, expected: &broadcast.File{}},
		{name: "given default driver without cache should use event file", driver: "", expected: &broadcast.File{}},
		{name: "given memory sessions without cache should stay in process", driver: sessionDriverMemory, expected: &broadcast.Local{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Session.Driver = test.driver
			cfg.Cart.SyncFile = filepath.Join(t.TempDir(), "cart-events.log")
			a := &app{cfg: cfg, cache: test.cache}

			assert.IsType(t, test.expected, a.newBroadcaster())
		})
	}
}

func TestDefaultBroadcasterReachesOtherProcess(t *testing.T) {
	cfg := &config.Config{}
	cfg.Session.Driver = sessionDriverFile
	cfg.Cart.SyncFile = filepath.Join(t.TempDir(), ".storefront", "cart-events.log")
	watching := &app{cfg: cfg}
	mutating := &app{cfg: cfg}

	c, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := watching.newBroadcaster().Subscribe(c)
	require.NoError(t, err)
	require.NoError(t, mutating.newBroadcaster().Publish(c, broadcast.Event{
		Origin: "cli",
		Kind:   broadcast.KindCartChanged,
		UserID: "u1",
	}))

	select {
	case event := <-events:
		assert.Equal(t, "cli", event.Origin)
		assert.Equal(t, broadcast.KindCartChanged, event.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("event did not reach the watching process")
	}
}
