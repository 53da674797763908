package service

import (
	"context"
	"sync"

	"liefrik/cart-svc/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	MinItemQty = 1
	MaxItemQty = 99
)

// ConfiguratorState is a snapshot of one session's item configuration.
type ConfiguratorState struct {
	Open           bool             `json:"open"`
	Item           *domain.MenuItem `json:"item,omitempty"`
	SelectedSize   *string          `json:"selectedSize"`
	SelectedAddOns []string         `json:"selectedAddOns"`
	Qty            int              `json:"qty"`
	RunningTotal   float64          `json:"runningTotal"`
}

// Configurator holds the size, add-on and quantity choices for one menu item
// until they are confirmed into a cart line or cancelled.
type Configurator struct {
	session    string
	store      *CartStore
	backend    Backend
	identities *IdentityResolver
	logger     *zap.Logger
	registry   *Configurators

	mu     sync.Mutex
	open   bool
	item   domain.MenuItem
	size   *string
	addOns map[string]bool
	qty    int
}

func NewConfigurator(session string, store *CartStore, backend Backend, identities *IdentityResolver, logger *zap.Logger) *Configurator {
	return &Configurator{
		session:    session,
		store:      store,
		backend:    backend,
		identities: identities,
		logger:     logger,
	}
}

// Open starts configuring item, discarding any previous choices.
func (c *Configurator) Open(item domain.MenuItem) (ConfiguratorState, error) {
	if item.ID == "" {
		return ConfiguratorState{}, invalid("id", ErrInvalidItem)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.open = true
	c.item = item
	c.size = nil
	if len(item.Sizes) > 0 {
		label := item.Sizes[0].Label
		c.size = &label
	}
	c.addOns = make(map[string]bool)
	c.qty = MinItemQty
	if c.registry != nil {
		c.registry.track(c)
	}
	return c.stateLocked(), nil
}

func (c *Configurator) State() ConfiguratorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// ConfiguratorUpdate is a set of choices applied together. Step moves the
// quantity by one in either direction after Qty is applied.
type ConfiguratorUpdate struct {
	Size        *string
	ToggleAddOn *string
	Qty         *int
	Step        int
}

// Apply checks every option in u before changing anything, so a rejected
// update leaves the configurator as it was.
func (c *Configurator) Apply(u ConfiguratorUpdate) (ConfiguratorState, error) {
	return c.mutate(func() error {
		if u.Size != nil && !c.hasSizeLocked(*u.Size) {
			return invalid("size", ErrUnknownOption)
		}
		if u.ToggleAddOn != nil && !c.hasAddOnLocked(*u.ToggleAddOn) {
			return invalid("addOn", ErrUnknownOption)
		}

		if u.Size != nil {
			label := *u.Size
			c.size = &label
		}
		if name := u.ToggleAddOn; name != nil {
			if c.addOns[*name] {
				delete(c.addOns, *name)
			} else {
				c.addOns[*name] = true
			}
		}
		if u.Qty != nil {
			c.qty = clampItemQty(*u.Qty)
		}
		c.qty = clampItemQty(c.qty + u.Step)
		return nil
	})
}

func (c *Configurator) SelectSize(label string) (ConfiguratorState, error) {
	return c.Apply(ConfiguratorUpdate{Size: &label})
}

func (c *Configurator) ToggleAddOn(name string) (ConfiguratorState, error) {
	return c.Apply(ConfiguratorUpdate{ToggleAddOn: &name})
}

func (c *Configurator) SetQty(n int) (ConfiguratorState, error) {
	return c.Apply(ConfiguratorUpdate{Qty: &n})
}

func (c *Configurator) Increment() (ConfiguratorState, error) {
	return c.Apply(ConfiguratorUpdate{Step: 1})
}

func (c *Configurator) Decrement() (ConfiguratorState, error) {
	return c.Apply(ConfiguratorUpdate{Step: -1})
}

func (c *Configurator) RunningTotal() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return 0, ErrConfiguratorClosed
	}
	return c.runningTotalLocked(), nil
}

func (c *Configurator) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrConfiguratorClosed
	}
	c.resetLocked()
	return nil
}

// Confirm appends the configured line to the cart and closes the
// configurator. For a logged-in session it also mirrors the line to the
// server cart; that call's outcome is only visible through the returned task.
func (c *Configurator) Confirm(ctx context.Context) (domain.CartLine, *Task, error) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return domain.CartLine{}, nil, ErrConfiguratorClosed
	}
	line := c.lineLocked()
	c.resetLocked()
	c.mu.Unlock()

	c.store.Append(ctx, c.session, line)

	identity := c.identities.Resolve(ctx, c.session)
	if !identity.Known() || c.backend == nil {
		return line, SkippedTask("add_to_server_cart"), nil
	}

	item := domain.ServerCartItem{
		UserID:     identity.UserID,
		MenuItemID: line.ID,
		Quantity:   line.Qty,
		Size:       line.SelectedSize,
		AddOns:     line.SelectedAddOnsDetailed,
	}
	task := StartTask(ctx, c.logger, "add_to_server_cart", func(ctx context.Context) error {
		return c.backend.AddToCart(ctx, identity.Token, item)
	})
	return line, task, nil
}

func (c *Configurator) mutate(fn func() error) (ConfiguratorState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return c.stateLocked(), ErrConfiguratorClosed
	}
	if err := fn(); err != nil {
		return c.stateLocked(), err
	}
	return c.stateLocked(), nil
}

func (c *Configurator) stateLocked() ConfiguratorState {
	state := ConfiguratorState{Open: c.open, SelectedAddOns: []string{}}
	if !c.open {
		return state
	}
	item := c.item
	state.Item = &item
	state.SelectedSize = c.size
	for _, a := range c.selectedAddOnsLocked() {
		state.SelectedAddOns = append(state.SelectedAddOns, a.Name)
	}
	state.Qty = c.qty
	state.RunningTotal = c.runningTotalLocked()
	return state
}

func (c *Configurator) hasSizeLocked(label string) bool {
	for _, size := range c.item.Sizes {
		if size.Label == label {
			return true
		}
	}
	return false
}

func (c *Configurator) hasAddOnLocked(name string) bool {
	for _, a := range c.item.AddOns {
		if a.Name == name {
			return true
		}
	}
	return false
}

func (c *Configurator) unitPriceLocked() domain.Amount {
	if c.size != nil {
		for _, s := range c.item.Sizes {
			if s.Label == *c.size {
				return s.Price
			}
		}
	}
	return c.item.Price
}

// selectedAddOnsLocked returns the chosen add-ons in catalog order.
func (c *Configurator) selectedAddOnsLocked() []domain.AddOn {
	selected := []domain.AddOn{}
	for _, a := range c.item.AddOns {
		if c.addOns[a.Name] {
			selected = append(selected, a)
		}
	}
	return selected
}

func (c *Configurator) runningTotalLocked() float64 {
	total := decimal.NewFromFloat(float64(c.unitPriceLocked()))
	for _, a := range c.selectedAddOnsLocked() {
		total = total.Add(decimal.NewFromFloat(float64(a.Price)))
	}
	return total.Mul(decimal.NewFromInt(int64(c.qty))).Round(2).InexactFloat64()
}

func (c *Configurator) lineLocked() domain.CartLine {
	line := domain.CartLine{
		ID:                     c.item.ID,
		RestaurantID:           c.item.RestaurantID,
		RestaurantName:         c.item.RestaurantName,
		Name:                   c.item.Name,
		Img:                    c.item.Img,
		Qty:                    c.qty,
		UnitPrice:              c.unitPriceLocked(),
		SelectedAddOnsDetailed: c.selectedAddOnsLocked(),
		AvailableSizes:         append([]domain.SizeOption(nil), c.item.Sizes...),
		AvailableAddOns:        append([]domain.AddOn(nil), c.item.AddOns...),
	}
	if c.size != nil {
		size := *c.size
		line.SelectedSize = &size
	}
	return line
}

func (c *Configurator) resetLocked() {
	if c.registry != nil {
		c.registry.release(c)
	}
	c.open = false
	c.item = domain.MenuItem{}
	c.size = nil
	c.addOns = nil
	c.qty = 0
}

func clampItemQty(n int) int {
	if n < MinItemQty {
		return MinItemQty
	}
	if n > MaxItemQty {
		return MaxItemQty
	}
	return n
}

// Configurators keeps the open configurator of each session. A session
// without an open configurator holds no entry.
type Configurators struct {
	store      *CartStore
	backend    Backend
	identities *IdentityResolver
	logger     *zap.Logger

	mu    sync.Mutex
	items map[string]*Configurator
}

func NewConfigurators(store *CartStore, backend Backend, identities *IdentityResolver, logger *zap.Logger) *Configurators {
	return &Configurators{
		store:      store,
		backend:    backend,
		identities: identities,
		logger:     logger,
		items:      make(map[string]*Configurator),
	}
}

// For returns the session's open configurator, or a closed one that is only
// registered once it is opened.
func (r *Configurators) For(session string) *Configurator {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.items[session]; ok {
		return c
	}
	c := NewConfigurator(session, r.store, r.backend, r.identities, r.logger)
	c.registry = r
	return c
}

// Len is the number of sessions with an open configurator.
func (r *Configurators) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *Configurators) track(c *Configurator) {
	r.mu.Lock()
	r.items[c.session] = c
	r.mu.Unlock()
}

func (r *Configurators) release(c *Configurator) {
	r.mu.Lock()
	if r.items[c.session] == c {
		delete(r.items, c.session)
	}
	r.mu.Unlock()
}
