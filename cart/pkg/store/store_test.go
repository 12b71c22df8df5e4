package store

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/cart/pkg/broadcast"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	productRes "github.com/Alturino/storefront/product/pkg/response"
	"github.com/Alturino/storefront/session"
)

var errNetwork = errors.New("connection refused")

// fakeRemote keeps a server-side cart per user and counts every call.
type fakeRemote struct {
	mu       sync.Mutex
	carts    map[string][]response.CartLineItem
	products map[string]*productRes.Product

	fetchErr    error
	mutationErr error

	fetchCalls    int
	mutationCalls int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		carts: map[string][]response.CartLineItem{},
		products: map[string]*productRes.Product{
			"p1": {ID: "p1", Name: "Basmati Rice", Brand: "India Gate", Category: "Grains", Price: decimal.NewFromInt(10)},
			"p2": {ID: "p2", Name: "Sunflower Oil", Brand: "Fortune", Category: "Oils", Price: decimal.NewFromInt(150)},
		},
	}
}

func (f *fakeRemote) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, f.mutationCalls
}

func (f *fakeRemote) FetchCart(_ context.Context, userID string) ([]response.CartLineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	items := make([]response.CartLineItem, len(f.carts[userID]))
	copy(items, f.carts[userID])
	return items, nil
}

func (f *fakeRemote) AddItem(_ context.Context, param request.AddItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutationCalls++
	if f.mutationErr != nil {
		return f.mutationErr
	}
	for i, item := range f.carts[param.UserID] {
		if item.ProductID == param.ProductID {
			f.carts[param.UserID][i].Quantity += param.Quantity
			return nil
		}
	}
	f.carts[param.UserID] = append(f.carts[param.UserID], response.CartLineItem{
		ProductID: param.ProductID,
		Product:   f.products[param.ProductID],
		Quantity:  param.Quantity,
	})
	return nil
}

func (f *fakeRemote) UpdateItem(_ context.Context, param request.UpdateItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutationCalls++
	if f.mutationErr != nil {
		return f.mutationErr
	}
	for i, item := range f.carts[param.UserID] {
		if item.ProductID == param.ProductID {
			f.carts[param.UserID][i].Quantity = param.Quantity
			return nil
		}
	}
	return errors.New("cart item not found")
}

func (f *fakeRemote) RemoveItem(_ context.Context, param request.RemoveItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutationCalls++
	if f.mutationErr != nil {
		return f.mutationErr
	}
	items := f.carts[param.UserID][:0]
	for _, item := range f.carts[param.UserID] {
		if item.ProductID != param.ProductID {
			items = append(items, item)
		}
	}
	f.carts[param.UserID] = items
	return nil
}

func (f *fakeRemote) ClearCart(_ context.Context, param request.ClearCart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutationCalls++
	if f.mutationErr != nil {
		return f.mutationErr
	}
	delete(f.carts, param.UserID)
	return nil
}

type fakeSession struct {
	userID string
}

func (f fakeSession) CurrentUserID(context.Context) (string, error) {
	if f.userID == "" {
		return "", session.ErrNoSession
	}
	return f.userID, nil
}

func seeded(remote *fakeRemote, userID string) {
	remote.carts[userID] = []response.CartLineItem{
		{ProductID: "p1", Product: remote.products["p1"], Quantity: 2},
		{ProductID: "gone", Product: nil, Quantity: 3},
	}
}

func TestFetchCartReplacesItemsWithServerList(t *testing.T) {
	remote := newFakeRemote()
	seeded(remote, "u1")
	s := New(remote, fakeSession{userID: "u1"})

	require.NoError(t, s.FetchCart(context.Background()))

	assert.Equal(t, remote.carts["u1"], s.Items())
	fetches, _ := remote.calls()
	assert.Equal(t, 1, fetches)
}

func TestFetchCartWithoutSession(t *testing.T) {
	remote := newFakeRemote()
	seeded(remote, "u1")
	s := New(remote, fakeSession{userID: "u1"})
	require.NoError(t, s.FetchCart(context.Background()))
	require.NotEmpty(t, s.Items())

	s.session = fakeSession{}
	err := s.FetchCart(context.Background())

	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, s.Items())
	fetches, _ := remote.calls()
	assert.Equal(t, 1, fetches)
}

func TestFetchCartFailure(t *testing.T) {
	tests := []struct {
		name              string
		clearOnFetchError bool
		expectedLen       int
	}{
		{name: "given default policy should clear items", clearOnFetchError: true, expectedLen: 0},
		{name: "given keep policy should keep last items", clearOnFetchError: false, expectedLen: 2},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			remote := newFakeRemote()
			seeded(remote, "u1")
			s := New(remote, fakeSession{userID: "u1"}, WithClearOnFetchError(test.clearOnFetchError))
			require.NoError(t, s.FetchCart(context.Background()))

			remote.fetchErr = errNetwork
			err := s.FetchCart(context.Background())

			assert.ErrorIs(t, err, ErrFetchFailed)
			assert.ErrorIs(t, err, errNetwork)
			assert.Len(t, s.Items(), test.expectedLen)
		})
	}
}

func TestFetchCartFailureOnFreshStoreIsEmpty(t *testing.T) {
	remote := newFakeRemote()
	remote.fetchErr = errNetwork
	s := New(remote, fakeSession{userID: "u1"})

	err := s.FetchCart(context.Background())

	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, []response.CartLineItem{}, s.Items())
}

func TestMutationsRefetchExactlyOnceOnSuccess(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Store) error
	}{
		{name: "add", mutate: func(s *Store) error { return s.AddItem(context.Background(), "p2", 1) }},
		{name: "update", mutate: func(s *Store) error { return s.UpdateItem(context.Background(), "p1", 5) }},
		{name: "remove", mutate: func(s *Store) error { return s.RemoveItem(context.Background(), "p1") }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			remote := newFakeRemote()
			seeded(remote, "u1")
			s := New(remote, fakeSession{userID: "u1"})

			require.NoError(t, test.mutate(s))

			fetches, mutations := remote.calls()
			assert.Equal(t, 1, mutations)
			assert.Equal(t, 1, fetches)
			assert.Equal(t, remote.carts["u1"], s.Items())
		})
	}
}

func TestMutationsDoNotRefetchOnFailure(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Store) error
	}{
		{name: "add", mutate: func(s *Store) error { return s.AddItem(context.Background(), "p2", 1) }},
		{name: "update", mutate: func(s *Store) error { return s.UpdateItem(context.Background(), "p1", 5) }},
		{name: "remove", mutate: func(s *Store) error { return s.RemoveItem(context.Background(), "p1") }},
		{name: "clear", mutate: func(s *Store) error { return s.ClearCart(context.Background()) }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			remote := newFakeRemote()
			seeded(remote, "u1")
			s := New(remote, fakeSession{userID: "u1"})
			require.NoError(t, s.FetchCart(context.Background()))
			before := s.Items()

			remote.mutationErr = errNetwork
			err := test.mutate(s)

			assert.ErrorIs(t, err, ErrMutationFailed)
			assert.ErrorIs(t, err, errNetwork)
			fetches, _ := remote.calls()
			assert.Equal(t, 1, fetches)
			assert.Equal(t, before, s.Items())
		})
	}
}

func TestClearCartEmptiesWithoutFetch(t *testing.T) {
	remote := newFakeRemote()
	seeded(remote, "u1")
	s := New(remote, fakeSession{userID: "u1"})
	require.NoError(t, s.FetchCart(context.Background()))

	require.NoError(t, s.ClearCart(context.Background()))

	assert.Equal(t, []response.CartLineItem{}, s.Items())
	fetches, mutations := remote.calls()
	assert.Equal(t, 1, fetches)
	assert.Equal(t, 1, mutations)
}

func TestInvalidQuantityRejectedBeforeNetwork(t *testing.T) {
	tests := []struct {
		name     string
		quantity float64
	}{
		{name: "zero", quantity: 0},
		{name: "negative", quantity: -5},
		{name: "nan", quantity: math.NaN()},
		{name: "infinite", quantity: math.Inf(1)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			remote := newFakeRemote()
			s := New(remote, fakeSession{userID: "u1"})

			assert.ErrorIs(t, s.UpdateItem(context.Background(), "p1", test.quantity), ErrInvalidQuantity)
			assert.ErrorIs(t, s.AddItem(context.Background(), "p1", test.quantity), ErrInvalidQuantity)

			fetches, mutations := remote.calls()
			assert.Zero(t, fetches)
			assert.Zero(t, mutations)
		})
	}
}

func TestMutationsWithoutSessionIssueNoNetworkCall(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Store) error
	}{
		{name: "add", mutate: func(s *Store) error { return s.AddItem(context.Background(), "p1", 1) }},
		{name: "update", mutate: func(s *Store) error { return s.UpdateItem(context.Background(), "p1", 1) }},
		{name: "remove", mutate: func(s *Store) error { return s.RemoveItem(context.Background(), "p1") }},
		{name: "clear", mutate: func(s *Store) error { return s.ClearCart(context.Background()) }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			remote := newFakeRemote()
			s := New(remote, fakeSession{})

			assert.ErrorIs(t, test.mutate(s), ErrNotAuthenticated)

			fetches, mutations := remote.calls()
			assert.Zero(t, fetches)
			assert.Zero(t, mutations)
		})
	}
}

func TestBlankProductRejectedBeforeNetwork(t *testing.T) {
	remote := newFakeRemote()
	s := New(remote, fakeSession{userID: "u1"})

	assert.ErrorIs(t, s.AddItem(context.Background(), "", 1), ErrInvalidRequest)
	assert.ErrorIs(t, s.RemoveItem(context.Background(), ""), ErrInvalidRequest)

	fetches, mutations := remote.calls()
	assert.Zero(t, fetches)
	assert.Zero(t, mutations)
}

func TestRefetchFailureAfterSuccessfulMutation(t *testing.T) {
	remote := newFakeRemote()
	s := New(remote, fakeSession{userID: "u1"})
	remote.fetchErr = errNetwork

	err := s.AddItem(context.Background(), "p1", 1)

	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.NotErrorIs(t, err, ErrMutationFailed)
	_, mutations := remote.calls()
	assert.Equal(t, 1, mutations)
}

func TestSnapshotApproximateTotal(t *testing.T) {
	snapshot := Snapshot{Items: []response.CartLineItem{
		{ProductID: "p1", Product: &productRes.Product{ID: "p1", Price: decimal.NewFromInt(10)}, Quantity: 2},
		{ProductID: "p2", Product: nil, Quantity: 3},
	}}

	assert.True(t, decimal.NewFromInt(20).Equal(snapshot.ApproximateTotal()))
}

func TestAddThenRemoveScenario(t *testing.T) {
	remote := newFakeRemote()
	s := New(remote, fakeSession{userID: "u1"})

	require.NoError(t, s.AddItem(context.Background(), "p1", 2))
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ProductID)
	assert.Equal(t, 2.0, items[0].Quantity)

	require.NoError(t, s.RemoveItem(context.Background(), "p1"))
	for _, item := range s.Items() {
		assert.NotEqual(t, "p1", item.ProductID)
	}
}

func TestSubscribe(t *testing.T) {
	remote := newFakeRemote()
	seeded(remote, "u1")
	s := New(remote, fakeSession{userID: "u1"})

	var snapshots []Snapshot
	unsubscribe := s.Subscribe(func(snapshot Snapshot) { snapshots = append(snapshots, snapshot) })

	require.NoError(t, s.FetchCart(context.Background()))
	require.Len(t, snapshots, 1)
	assert.Len(t, snapshots[0].Items, 2)

	s.Reset()
	require.Len(t, snapshots, 2)
	assert.Empty(t, snapshots[1].Items)

	unsubscribe()
	unsubscribe()
	require.NoError(t, s.FetchCart(context.Background()))
	assert.Len(t, snapshots, 2)
}

func TestItemsReturnsCopy(t *testing.T) {
	remote := newFakeRemote()
	seeded(remote, "u1")
	s := New(remote, fakeSession{userID: "u1"})
	require.NoError(t, s.FetchCart(context.Background()))

	items := s.Items()
	items[0].Quantity = 99

	assert.Equal(t, 2.0, s.Items()[0].Quantity)
}

func TestInit(t *testing.T) {
	t.Run("given no session should stay empty without network", func(t *testing.T) {
		remote := newFakeRemote()
		s := New(remote, fakeSession{})

		require.NoError(t, s.Init(context.Background()))

		assert.Empty(t, s.Items())
		fetches, _ := remote.calls()
		assert.Zero(t, fetches)
	})
	t.Run("given session should fetch", func(t *testing.T) {
		remote := newFakeRemote()
		seeded(remote, "u1")
		s := New(remote, fakeSession{userID: "u1"})

		require.NoError(t, s.Init(context.Background()))

		assert.Len(t, s.Items(), 2)
	})
}

type slowRemote struct {
	*fakeRemote
}

func (s slowRemote) FetchCart(c context.Context, userID string) ([]response.CartLineItem, error) {
	<-c.Done()
	return nil, c.Err()
}

func TestFetchCartTimesOut(t *testing.T) {
	s := New(slowRemote{newFakeRemote()}, fakeSession{userID: "u1"}, WithTimeout(20*time.Millisecond))

	err := s.FetchCart(context.Background())

	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMutationPublishesAndSyncRefetches(t *testing.T) {
	remote := newFakeRemote()
	local := broadcast.NewLocal()
	writer := New(remote, fakeSession{userID: "u1"}, WithBroadcaster(local))
	reader := New(remote, fakeSession{userID: "u1"}, WithBroadcaster(local))

	c, cancel := context.WithCancel(context.Background())
	defer cancel()

	synced := make(chan Snapshot, 4)
	reader.Subscribe(func(snapshot Snapshot) { synced <- snapshot })

	done := make(chan error, 1)
	go func() { done <- reader.Sync(c) }()
	require.Eventually(t, func() bool {
		local.Mu.RLock()
		defer local.Mu.RUnlock()
		return len(local.Subscribers) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, writer.AddItem(context.Background(), "p1", 1))

	select {
	case snapshot := <-synced:
		require.Len(t, snapshot.Items, 1)
		assert.Equal(t, "p1", snapshot.Items[0].ProductID)
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not refetch after event")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestSyncIgnoresOwnEvents(t *testing.T) {
	remote := newFakeRemote()
	local := broadcast.NewLocal()
	s := New(remote, fakeSession{userID: "u1"}, WithBroadcaster(local))

	c, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Sync(c) }()
	require.Eventually(t, func() bool {
		local.Mu.RLock()
		defer local.Mu.RUnlock()
		return len(local.Subscribers) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, local.Publish(c, broadcast.Event{Origin: s.Origin(), Kind: broadcast.KindCartChanged}))
	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	fetches, _ := remote.calls()
	assert.Zero(t, fetches)
}

func TestSyncAcrossProcessesThroughEventFile(t *testing.T) {
	remote := newFakeRemote()
	path := filepath.Join(t.TempDir(), "cart-events.log")
	writer := New(remote, fakeSession{userID: "u1"}, WithBroadcaster(broadcast.NewFile(path)))
	reader := New(remote, fakeSession{userID: "u1"}, WithBroadcaster(broadcast.NewFile(path)))

	c, cancel := context.WithCancel(context.Background())
	defer cancel()

	synced := make(chan Snapshot, 4)
	reader.Subscribe(func(snapshot Snapshot) { synced <- snapshot })

	done := make(chan error, 1)
	go func() { done <- reader.Sync(c) }()
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)
	// the watch is added right after the event file is created
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, writer.AddItem(context.Background(), "p1", 2))

	select {
	case snapshot := <-synced:
		require.Len(t, snapshot.Items, 1)
		assert.Equal(t, "p1", snapshot.Items[0].ProductID)
		assert.Equal(t, 2.0, snapshot.Items[0].Quantity)
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not refetch after event from another process")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestSyncWithoutBroadcaster(t *testing.T) {
	s := New(newFakeRemote(), fakeSession{userID: "u1"})
	assert.ErrorIs(t, s.Sync(context.Background()), ErrNoBroadcaster)
}
