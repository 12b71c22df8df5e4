package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/testutil"
)

func appendItem(item Item) UpdateFunc {
	return func(items []Item) ([]Item, error) {
		return append(items, item), nil
	}
}

func exerciseRepository(t *testing.T, repo Repository) {
	c := context.Background()

	items, err := repo.FindItems(c, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)

	updated, err := repo.UpdateItems(c, "u1", appendItem(Item{ProductID: "p1", Quantity: 2}))
	require.NoError(t, err)
	assert.Equal(t, []Item{{ProductID: "p1", Quantity: 2}}, updated)

	_, err = repo.UpdateItems(c, "u1", appendItem(Item{ProductID: "p2", Quantity: 0.5}))
	require.NoError(t, err)

	items, err = repo.FindItems(c, "u1")
	require.NoError(t, err)
	assert.Equal(t, []Item{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 0.5}}, items)

	other, err := repo.FindItems(c, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)

	rejected := errors.New("rejected")
	_, err = repo.UpdateItems(c, "u1", func([]Item) ([]Item, error) { return nil, rejected })
	assert.ErrorIs(t, err, rejected)
	items, err = repo.FindItems(c, "u1")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.NoError(t, repo.DeleteItems(c, "u1"))
	items, err = repo.FindItems(c, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMemory(t *testing.T) {
	exerciseRepository(t, NewMemory())
}

func TestRedis(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exerciseRepository(t, NewRedis(client))

	_, err := NewRedis(client).UpdateItems(context.Background(), "u9", appendItem(Item{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)
	assert.True(t, server.Exists("cart:u9"))
}

func TestRedisConcurrentUpdates(t *testing.T) {
	client := testutil.NewRedis(t)
	repo := NewRedis(client)
	c := context.Background()

	increment := func(items []Item) ([]Item, error) {
		if len(items) == 0 {
			return []Item{{ProductID: "p1", Quantity: 1}}, nil
		}
		items[0].Quantity++
		return items, nil
	}

	const workers = 4
	wg := sync.WaitGroup{}
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpdateItems(c, "u1", increment)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := repo.FindItems(c, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, float64(workers), items[0].Quantity)
}
