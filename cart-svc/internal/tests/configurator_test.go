package tests

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"liefrik/cart-svc/internal/domain"
	"liefrik/cart-svc/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newConfigurator(env *testEnv) *service.Configurator {
	return service.NewConfigurator(env.session, env.store, env.backend, env.identities, zap.NewNop())
}

func TestConfigurator_OpenDefaults(t *testing.T) {
	env := newTestEnv(t)
	c := newConfigurator(env)

	state, err := c.Open(pizzaMenuItem())
	require.NoError(t, err)
	assert.True(t, state.Open)
	require.NotNil(t, state.SelectedSize)
	assert.Equal(t, "Medium", *state.SelectedSize)
	assert.Empty(t, state.SelectedAddOns)
	assert.Equal(t, 1, state.Qty)
	assert.Equal(t, 10.0, state.RunningTotal)

	sizeless := pizzaMenuItem()
	sizeless.Sizes = nil
	state, err = c.Open(sizeless)
	require.NoError(t, err)
	assert.Nil(t, state.SelectedSize)
	assert.Equal(t, 9.0, state.RunningTotal)
}

func TestConfigurator_OpenRejectsItemWithoutID(t *testing.T) {
	c := newConfigurator(newTestEnv(t))

	_, err := c.Open(domain.MenuItem{Name: "Ghost"})
	assert.ErrorIs(t, err, service.ErrInvalidItem)
	assert.False(t, c.State().Open)
}

func TestConfigurator_Selections(t *testing.T) {
	env := newTestEnv(t)
	c := newConfigurator(env)
	_, err := c.Open(pizzaMenuItem())
	require.NoError(t, err)

	state, err := c.SelectSize("Large")
	require.NoError(t, err)
	assert.Equal(t, "Large", *state.SelectedSize)

	_, err = c.SelectSize("Family")
	assert.ErrorIs(t, err, service.ErrUnknownOption)

	_, err = c.ToggleAddOn("Basil")
	require.NoError(t, err)
	_, err = c.ToggleAddOn("Extra cheese")
	require.NoError(t, err)
	_, err = c.ToggleAddOn("Olives")
	require.NoError(t, err)
	state, err = c.ToggleAddOn("Olives")
	require.NoError(t, err)
	assert.Equal(t, []string{"Extra cheese", "Basil"}, state.SelectedAddOns)

	_, err = c.ToggleAddOn("Pineapple")
	assert.ErrorIs(t, err, service.ErrUnknownOption)

	state, err = c.SetQty(2)
	require.NoError(t, err)
	assert.Equal(t, 30.0, state.RunningTotal)

	total, err := c.RunningTotal()
	require.NoError(t, err)
	assert.Equal(t, 30.0, total)
}

func TestConfigurator_QtyBounds(t *testing.T) {
	tests := []struct {
		name     string
		apply    func(c *service.Configurator) (service.ConfiguratorState, error)
		expected int
	}{
		{name: "set below range", apply: func(c *service.Configurator) (service.ConfiguratorState, error) { return c.SetQty(0) }, expected: 1},
		{name: "set above range", apply: func(c *service.Configurator) (service.ConfiguratorState, error) { return c.SetQty(250) }, expected: 99},
		{name: "decrement at one", apply: func(c *service.Configurator) (service.ConfiguratorState, error) { return c.Decrement() }, expected: 1},
		{name: "increment", apply: func(c *service.Configurator) (service.ConfiguratorState, error) { return c.Increment() }, expected: 2},
		{
			name: "increment at ninety-nine",
			apply: func(c *service.Configurator) (service.ConfiguratorState, error) {
				if _, err := c.SetQty(99); err != nil {
					return service.ConfiguratorState{}, err
				}
				return c.Increment()
			},
			expected: 99,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			c := newConfigurator(newTestEnv(t))
			_, err := c.Open(pizzaMenuItem())
			require.NoError(t, err)

			state, err := testCase.apply(c)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, state.Qty)
		})
	}
}

func TestConfigurator_ClosedRejectsEverything(t *testing.T) {
	c := newConfigurator(newTestEnv(t))
	ctx := context.Background()

	_, err := c.SelectSize("Large")
	assert.ErrorIs(t, err, service.ErrConfiguratorClosed)
	_, err = c.ToggleAddOn("Olives")
	assert.ErrorIs(t, err, service.ErrConfiguratorClosed)
	_, err = c.SetQty(3)
	assert.ErrorIs(t, err, service.ErrConfiguratorClosed)
	_, err = c.Increment()
	assert.ErrorIs(t, err, service.ErrConfiguratorClosed)
	_, err = c.RunningTotal()
	assert.ErrorIs(t, err, service.ErrConfiguratorClosed)
	assert.ErrorIs(t, c.Cancel(), service.ErrConfiguratorClosed)
	_, _, err = c.Confirm(ctx)
	assert.ErrorIs(t, err, service.ErrConfiguratorClosed)
}

func TestConfigurator_CancelLeavesCartUntouched(t *testing.T) {
	env := newTestEnv(t)
	c := newConfigurator(env)
	ctx := context.Background()

	_, err := c.Open(pizzaMenuItem())
	require.NoError(t, err)
	_, err = c.ToggleAddOn("Olives")
	require.NoError(t, err)

	require.NoError(t, c.Cancel())
	assert.False(t, c.State().Open)
	assert.Empty(t, env.store.Read(ctx, env.session))
}

func TestConfigurator_ConfirmAnonymous(t *testing.T) {
	env := newTestEnv(t)
	c := newConfigurator(env)
	ctx := context.Background()

	_, err := c.Open(pizzaMenuItem())
	require.NoError(t, err)
	_, err = c.SelectSize("Large")
	require.NoError(t, err)
	_, err = c.ToggleAddOn("Olives")
	require.NoError(t, err)
	_, err = c.SetQty(3)
	require.NoError(t, err)

	line, task, err := c.Confirm(ctx)
	require.NoError(t, err)
	assert.True(t, task.Skipped())
	assert.ErrorIs(t, task.Wait(ctx), service.ErrTaskSkipped)

	assert.Equal(t, "m-1", line.ID)
	assert.Equal(t, "r-1", line.RestaurantID)
	assert.Equal(t, 3, line.Qty)
	assert.Equal(t, domain.Amount(13), line.UnitPrice)
	assert.Equal(t, "Large", *line.SelectedSize)
	assert.Equal(t, []domain.AddOn{{Name: "Olives", Price: 0.75}}, line.SelectedAddOnsDetailed)
	assert.Len(t, line.AvailableSizes, 2)
	assert.Len(t, line.AvailableAddOns, 3)

	assert.Equal(t, []domain.CartLine{line}, env.store.Read(ctx, env.session))
	assert.False(t, c.State().Open)
}

func TestConfigurator_ConfirmMirrorsToServerCart(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "u-42")
	c := newConfigurator(env)
	ctx := context.Background()

	env.backend.On("AddToCart", mock.Anything, token, mock.MatchedBy(func(item domain.ServerCartItem) bool {
		return item.UserID == "u-42" && item.MenuItemID == "m-1" && item.Quantity == 1 && *item.Size == "Medium"
	})).Return(nil).Once()

	_, err := c.Open(pizzaMenuItem())
	require.NoError(t, err)
	_, task, err := c.Confirm(ctx)
	require.NoError(t, err)
	assert.False(t, task.Skipped())
	assert.NoError(t, task.Wait(ctx))
}

func TestConfigurator_ServerCartFailureKeepsLocalLine(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u-42")
	c := newConfigurator(env)
	ctx := context.Background()

	env.backend.On("AddToCart", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("backend unavailable")).Once()

	_, err := c.Open(pizzaMenuItem())
	require.NoError(t, err)
	_, task, err := c.Confirm(ctx)
	require.NoError(t, err)

	assert.EqualError(t, task.Wait(ctx), "backend unavailable")
	assert.Len(t, env.store.Read(ctx, env.session), 1)
}

func TestConfigurator_ApplyIsAllOrNothing(t *testing.T) {
	c := newConfigurator(newTestEnv(t))
	_, err := c.Open(pizzaMenuItem())
	require.NoError(t, err)

	state, err := c.Apply(service.ConfiguratorUpdate{
		Size:        strPtr("Large"),
		ToggleAddOn: strPtr("Pineapple"),
		Step:        1,
	})
	assert.ErrorIs(t, err, service.ErrUnknownOption)
	require.NotNil(t, state.SelectedSize)
	assert.Equal(t, "Medium", *state.SelectedSize)
	assert.Equal(t, 1, state.Qty)

	qty := 3
	state, err = c.Apply(service.ConfiguratorUpdate{
		Size:        strPtr("Large"),
		ToggleAddOn: strPtr("Olives"),
		Qty:         &qty,
		Step:        -1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Large", *state.SelectedSize)
	assert.Equal(t, []string{"Olives"}, state.SelectedAddOns)
	assert.Equal(t, 2, state.Qty)
	assert.Equal(t, 27.5, state.RunningTotal)
}

func TestConfigurator_NonFinitePriceCountsAsZero(t *testing.T) {
	c := newConfigurator(newTestEnv(t))

	var item domain.MenuItem
	raw := `{"id":"m-9","name":"Mystery","price":"NaN","addOns":[{"name":"Sauce","price":"Infinity"}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &item))

	state, err := c.Open(item)
	require.NoError(t, err)
	assert.Equal(t, 0.0, state.RunningTotal)

	state, err = c.ToggleAddOn("Sauce")
	require.NoError(t, err)
	assert.Equal(t, 0.0, state.RunningTotal)
}

func TestConfigurators_OnePerOpenSession(t *testing.T) {
	env := newTestEnv(t)
	registry := service.NewConfigurators(env.store, env.backend, env.identities, zap.NewNop())

	a := registry.For("s-a")
	assert.Equal(t, 0, registry.Len())

	_, err := a.Open(pizzaMenuItem())
	require.NoError(t, err)
	assert.Same(t, a, registry.For("s-a"))
	assert.NotSame(t, a, registry.For("s-b"))
	assert.Equal(t, 1, registry.Len())

	require.NoError(t, a.Cancel())
	assert.Equal(t, 0, registry.Len())
	assert.False(t, registry.For("s-a").State().Open)
}

func TestConfigurators_UnknownSessionsHoldNoEntry(t *testing.T) {
	env := newTestEnv(t)
	registry := service.NewConfigurators(env.store, env.backend, env.identities, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		c := registry.For(uuid.NewString())
		c.State()
		_, err := c.Increment()
		assert.ErrorIs(t, err, service.ErrConfiguratorClosed)
	}
	assert.Equal(t, 0, registry.Len())

	c := registry.For(env.session)
	_, err := c.Open(pizzaMenuItem())
	require.NoError(t, err)
	assert.Equal(t, 1, registry.Len())

	_, task, err := c.Confirm(ctx)
	require.NoError(t, err)
	assert.True(t, task.Skipped())
	assert.Equal(t, 0, registry.Len())
}
