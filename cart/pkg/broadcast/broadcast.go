package broadcast

import (
	"context"
	"sync"
	"time"
)

type Kind string

const (
	KindCartChanged    Kind = "cart_changed"
	KindSessionChanged Kind = "session_changed"
)

// Event tells other storefront instances that cart or session state changed. It carries no
// cart contents; receivers re-fetch.
type Event struct {
	Origin string    `json:"origin"`
	Kind   Kind      `json:"kind"`
	UserID string    `json:"userId,omitempty"`
	At     time.Time `json:"at"`
}

type Broadcaster interface {
	Publish(c context.Context, event Event) error
	// Subscribe delivers events until c is done, then closes the channel.
	Subscribe(c context.Context) (<-chan Event, error)
}

const subscriberBuffer = 16

// Local fans events out to subscribers in the same process. A subscriber whose buffer is full
// misses the event; it still has an undelivered one queued, which triggers the same re-fetch.
type Local struct {
	Mu          sync.RWMutex
	Subscribers map[uint64]chan Event
	next        uint64
}

func NewLocal() *Local {
	return &Local{Subscribers: map[uint64]chan Event{}}
}

func (l *Local) Publish(_ context.Context, event Event) error {
	l.Mu.RLock()
	defer l.Mu.RUnlock()
	for _, subscriber := range l.Subscribers {
		select {
		case subscriber <- event:
		default:
		}
	}
	return nil
}

func (l *Local) Subscribe(c context.Context) (<-chan Event, error) {
	events := make(chan Event, subscriberBuffer)

	l.Mu.Lock()
	id := l.next
	l.next++
	l.Subscribers[id] = events
	l.Mu.Unlock()

	go func() {
		<-c.Done()
		l.Mu.Lock()
		delete(l.Subscribers, id)
		close(events)
		l.Mu.Unlock()
	}()

	return events, nil
}
