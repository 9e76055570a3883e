// Package realtime publica los cambios de cada noche de juegos para que los
// clientes conectados por websocket vean votos y RSVPs sin recargar.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
)

func channel(nightID string) string { return "gamenight:" + nightID }

// Feed es lo que usan el servicio (Publish) y el handler websocket
// (Subscribe). cancel libera la suscripción.
type Feed interface {
	Publish(ctx context.Context, nightID string, v any) error
	Subscribe(ctx context.Context, nightID string) (updates <-chan []byte, cancel func(), err error)
}

// RedisFeed usa pub/sub de Redis, así funciona con varias réplicas de la API.
type RedisFeed struct {
	client *redis.Client
}

func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

func (f *RedisFeed) Publish(ctx context.Context, nightID string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, channel(nightID), b).Err()
}

func (f *RedisFeed) Subscribe(ctx context.Context, nightID string) (<-chan []byte, func(), error) {
	sub := f.client.Subscribe(ctx, channel(nightID))
	// Receive confirma la suscripción antes de devolver el canal.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			select {
			case out <- []byte(msg.Payload):
			default:
				// cliente lento: se descarta, el próximo mensaje trae el documento completo
			}
		}
	}()

	return out, func() { _ = sub.Close() }, nil
}

// MemoryFeed es el equivalente en proceso para STORE_BACKEND=memory.
type MemoryFeed struct {
	mu   sync.Mutex
	subs map[string]map[chan []byte]struct{}
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: map[string]map[chan []byte]struct{}{}}
}

func (f *MemoryFeed) Publish(_ context.Context, nightID string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs[nightID] {
		select {
		case ch <- b:
		default:
		}
	}
	return nil
}

func (f *MemoryFeed) Subscribe(_ context.Context, nightID string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 16)

	f.mu.Lock()
	if f.subs[nightID] == nil {
		f.subs[nightID] = map[chan []byte]struct{}{}
	}
	f.subs[nightID][ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs[nightID], ch)
			if len(f.subs[nightID]) == 0 {
				delete(f.subs, nightID)
			}
			f.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}
