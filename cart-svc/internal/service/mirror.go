package service

import (
	"context"
	"sync"

	"liefrik/cart-svc/internal/domain"
	"liefrik/cart-svc/internal/pricing"
)

// Mirror is one consumer's local copy of a session cart, such as a
// websocket client or the header badge. It re-reads the store on every change
// signal and on Focus.
type Mirror struct {
	repo    CartRepository
	session string

	mu       sync.RWMutex
	lines    []domain.CartLine
	onChange func([]domain.CartLine)
	cancel   func()
}

func NewMirror(repo CartRepository, session string) *Mirror {
	return &Mirror{repo: repo, session: session, lines: []domain.CartLine{}}
}

// OnChange sets the callback run after every refresh. Set it before Start.
func (m *Mirror) OnChange(fn func([]domain.CartLine)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Start reads the cart once and subscribes to changes until Stop or until
// ctx is done.
func (m *Mirror) Start(ctx context.Context) {
	cancel := m.repo.Subscribe(m.session, func() {
		m.refresh(ctx)
	})
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.refresh(ctx)

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			m.Stop()
		}()
	}
}

func (m *Mirror) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Focus forces a re-read, the way a tab regaining focus does.
func (m *Mirror) Focus(ctx context.Context) {
	m.refresh(ctx)
}

func (m *Mirror) Lines() []domain.CartLine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.CartLine, len(m.lines))
	copy(out, m.lines)
	return out
}

func (m *Mirror) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, l := range m.lines {
		count += pricing.EffectiveQty(l.Qty)
	}
	return count
}

func (m *Mirror) refresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	lines := m.repo.Read(context.WithoutCancel(ctx), m.session)

	m.mu.Lock()
	m.lines = lines
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(lines)
	}
}
