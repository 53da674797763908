package service

import (
	"context"
	"encoding/json"

	"liefrik/cart-svc/internal/backend"
	"liefrik/cart-svc/internal/domain"
	"liefrik/cart-svc/internal/storage"
)

// KVStore is the persistent key-value namespace shared by all sessions.
// Keys are already session-qualified, see storage.SessionKey.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type EventPublisher interface {
	PublishStorageEvent(ctx context.Context, event domain.StorageEvent) error
}

type Backend interface {
	AddToCart(ctx context.Context, token string, item domain.ServerCartItem) error
	GetCart(ctx context.Context, token, userID string) (json.RawMessage, error)
	ChoosePayment(ctx context.Context, token, userID string, method domain.PaymentMethod) error
	Checkout(ctx context.Context, token string, payload domain.OrderPayload) (json.RawMessage, error)
}

type CartRepository interface {
	Read(ctx context.Context, session string) []domain.CartLine
	Write(ctx context.Context, session string, lines []domain.CartLine)
	Subscribe(session string, fn func()) (cancel func())
}

var (
	_ KVStore = (*storage.MemoryKV)(nil)
	_ KVStore = (*storage.RedisKV)(nil)
	_ KVStore = (*storage.PostgresKV)(nil)

	_ EventPublisher = (*storage.KafkaPublisher)(nil)
	_ Backend        = (*backend.Client)(nil)
	_ CartRepository = (*CartStore)(nil)
)
