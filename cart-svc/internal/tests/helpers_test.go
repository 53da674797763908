package tests

import (
	"context"
	"testing"

	"liefrik/cart-svc/internal/domain"
	"liefrik/cart-svc/internal/mocks"
	"liefrik/cart-svc/internal/pricing"
	"liefrik/cart-svc/internal/service"
	"liefrik/cart-svc/internal/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	kv         *storage.MemoryKV
	emitter    *service.Emitter
	store      *service.CartStore
	identities *service.IdentityResolver
	backend    *mocks.Backend
	checkout   *service.CheckoutService
	session    string
}

func newTestEnv(t *testing.T) *testEnv {
	kv := storage.NewMemoryKV()
	emitter := service.NewEmitter()
	store := service.NewCartStore(kv, emitter, nil, "test-instance", zap.NewNop())
	identities := service.NewIdentityResolver(kv)
	backend := mocks.NewBackend(t)

	return &testEnv{
		kv:         kv,
		emitter:    emitter,
		store:      store,
		identities: identities,
		backend:    backend,
		checkout:   service.NewCheckoutService(store, backend, identities, pricing.DefaultConfig, zap.NewNop()),
		session:    uuid.NewString(),
	}
}

func (e *testEnv) login(t *testing.T, userID string) string {
	token := signToken(t, jwt.MapClaims{"userId": userID})
	_, err := e.identities.SetToken(context.Background(), e.session, token)
	require.NoError(t, err)
	return token
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func strPtr(s string) *string {
	return &s
}

func pizzaLine() domain.CartLine {
	return domain.CartLine{
		ID:                     "m-1",
		RestaurantID:           "r-1",
		RestaurantName:         "Pizzeria Roma",
		Name:                   "Margherita",
		Img:                    "/img/margherita.png",
		Qty:                    2,
		UnitPrice:              10,
		SelectedSize:           strPtr("Large"),
		SelectedAddOnsDetailed: []domain.AddOn{{Name: "Extra cheese", Price: 1.5}},
	}
}

func sushiLine() domain.CartLine {
	return domain.CartLine{
		ID:                     "m-7",
		RestaurantID:           "r-2",
		RestaurantName:         "Sushi Bar",
		Name:                   "Salmon roll",
		Qty:                    1,
		UnitPrice:              8.25,
		SelectedAddOnsDetailed: []domain.AddOn{},
	}
}

func pizzaMenuItem() domain.MenuItem {
	return domain.MenuItem{
		ID:             "m-1",
		RestaurantID:   "r-1",
		RestaurantName: "Pizzeria Roma",
		Name:           "Margherita",
		Img:            "/img/margherita.png",
		Price:          9,
		Sizes: []domain.SizeOption{
			{Label: "Medium", Price: 10},
			{Label: "Large", Price: 13},
		},
		AddOns: []domain.AddOn{
			{Name: "Extra cheese", Price: 1.5},
			{Name: "Olives", Price: 0.75},
			{Name: "Basil", Price: 0.5},
		},
	}
}
