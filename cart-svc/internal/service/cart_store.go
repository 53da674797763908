package service

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"liefrik/cart-svc/internal/domain"
	"liefrik/cart-svc/internal/storage"

	"go.uber.org/zap"
)

// CartStore is the source of truth for a session's cart and its other
// persisted client keys. Persistence failures are logged, never returned.
type CartStore struct {
	kv        KVStore
	emitter   *Emitter
	publisher EventPublisher
	origin    string
	logger    *zap.Logger

	// Mutations of one session serialize on the stripe its id hashes to.
	locks [lockStripes]sync.Mutex
}

const lockStripes = 64

// NewCartStore wires the store. publisher may be nil when the instance runs
// without Kafka.
func NewCartStore(kv KVStore, emitter *Emitter, publisher EventPublisher, origin string, logger *zap.Logger) *CartStore {
	return &CartStore{
		kv:        kv,
		emitter:   emitter,
		publisher: publisher,
		origin:    origin,
		logger:    logger,
	}
}

func (s *CartStore) Read(ctx context.Context, session string) []domain.CartLine {
	raw, err := s.kv.Get(ctx, storage.SessionKey(session, domain.CartKey))
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn("cart read failed", zap.String("session", session), zap.Error(err))
		}
		return []domain.CartLine{}
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil || lines == nil {
		return []domain.CartLine{}
	}
	return lines
}

func (s *CartStore) Write(ctx context.Context, session string, lines []domain.CartLine) {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		s.logger.Error("cart encode failed", zap.String("session", session), zap.Error(err))
		return
	}
	s.put(ctx, session, domain.CartKey, raw)
}

// Subscribe calls fn after every change of the session's cart, whether it
// was written by this instance or announced by another one.
func (s *CartStore) Subscribe(session string, fn func()) (cancel func()) {
	return s.emitter.Subscribe(session, func(key string) {
		if key == domain.CartKey {
			fn()
		}
	})
}

func (s *CartStore) Append(ctx context.Context, session string, line domain.CartLine) []domain.CartLine {
	unlock := s.lock(session)
	defer unlock()

	if line.Qty < 1 {
		line.Qty = 1
	}
	lines := append(s.Read(ctx, session), line)
	s.Write(ctx, session, lines)
	return lines
}

// ChangeQty adds delta to the quantity of the line at index, never going
// below 1.
func (s *CartStore) ChangeQty(ctx context.Context, session string, index, delta int) ([]domain.CartLine, error) {
	return s.update(ctx, session, index, func(lines []domain.CartLine) []domain.CartLine {
		lines[index].Qty = clampQty(lines[index].Qty + delta)
		return lines
	})
}

func (s *CartStore) SetQty(ctx context.Context, session string, index, qty int) ([]domain.CartLine, error) {
	return s.update(ctx, session, index, func(lines []domain.CartLine) []domain.CartLine {
		lines[index].Qty = clampQty(qty)
		return lines
	})
}

func (s *CartStore) Remove(ctx context.Context, session string, index int) ([]domain.CartLine, error) {
	return s.update(ctx, session, index, func(lines []domain.CartLine) []domain.CartLine {
		return append(lines[:index], lines[index+1:]...)
	})
}

func (s *CartStore) Clear(ctx context.Context, session string) {
	unlock := s.lock(session)
	defer unlock()
	s.Write(ctx, session, nil)
}

// Locale returns the session's delivery area. Missing or malformed values
// read as "none".
func (s *CartStore) Locale(ctx context.Context, session string) domain.LocalePreference {
	fallback := domain.LocalePreference{Type: domain.LocaleNone}

	raw, err := s.kv.Get(ctx, storage.SessionKey(session, domain.LocaleKey))
	if err != nil {
		return fallback
	}
	var pref domain.LocalePreference
	if err := json.Unmarshal(raw, &pref); err != nil || !pref.Type.Valid() {
		return fallback
	}
	return pref
}

func (s *CartStore) SetLocale(ctx context.Context, session string, pref domain.LocalePreference) error {
	if !pref.Type.Valid() {
		return invalid("type", ErrUnknownLocale)
	}
	raw, err := json.Marshal(pref)
	if err != nil {
		return err
	}
	s.put(ctx, session, domain.LocaleKey, raw)
	return nil
}

func (s *CartStore) LastOrder(ctx context.Context, session string) (domain.LastOrder, bool) {
	raw, err := s.kv.Get(ctx, storage.SessionKey(session, domain.LastOrderKey))
	if err != nil {
		return domain.LastOrder{}, false
	}
	var order domain.LastOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return domain.LastOrder{}, false
	}
	return order, true
}

func (s *CartStore) SaveLastOrder(ctx context.Context, session string, order domain.LastOrder) {
	raw, err := json.Marshal(order)
	if err != nil {
		s.logger.Error("last order encode failed", zap.String("session", session), zap.Error(err))
		return
	}
	s.put(ctx, session, domain.LastOrderKey, raw)
}

func (s *CartStore) update(ctx context.Context, session string, index int, fn func([]domain.CartLine) []domain.CartLine) ([]domain.CartLine, error) {
	unlock := s.lock(session)
	defer unlock()

	lines := s.Read(ctx, session)
	if index < 0 || index >= len(lines) {
		return lines, ErrLineNotFound
	}
	lines = fn(lines)
	s.Write(ctx, session, lines)
	return lines, nil
}

// put writes one session key, then tells local subscribers and other
// instances about it.
func (s *CartStore) put(ctx context.Context, session, key string, raw []byte) {
	if err := s.kv.Set(ctx, storage.SessionKey(session, key), raw); err != nil {
		s.logger.Error("storage write failed",
			zap.String("session", session),
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}

	s.emitter.Notify(session, key)

	if s.publisher == nil {
		return
	}
	event := domain.StorageEvent{
		Origin:    s.origin,
		Session:   session,
		Key:       key,
		Timestamp: time.Now().UTC(),
	}
	if err := s.publisher.PublishStorageEvent(ctx, event); err != nil {
		s.logger.Warn("storage event publish failed", zap.String("session", session), zap.Error(err))
	}
}

func (s *CartStore) lock(session string) func() {
	h := fnv.New32a()
	h.Write([]byte(session))
	m := &s.locks[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

func clampQty(qty int) int {
	if qty < 1 {
		return 1
	}
	return qty
}
