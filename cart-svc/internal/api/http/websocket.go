package httpapi

import (
	"context"
	"net/http"

	"liefrik/cart-svc/internal/domain"
	"liefrik/cart-svc/internal/service"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type streamMessage struct {
	Type string `json:"type"`
}

// cartStream pushes the cart to one client on every change. The client may
// send {"type":"focus"} to force a re-read.
func (h *Handler) cartStream(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates := make(chan []domain.CartLine, 1)
	mirror := service.NewMirror(h.Carts, sid)
	mirror.OnChange(func(lines []domain.CartLine) {
		latest(updates, lines)
	})
	mirror.Start(ctx)
	defer mirror.Stop()

	go func() {
		defer cancel()
		for {
			var msg streamMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == "focus" {
				mirror.Focus(ctx)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case lines := <-updates:
			if err := conn.WriteJSON(h.cartView(lines)); err != nil {
				h.Logger.Debug("cart stream closed", zap.String("session", sid), zap.Error(err))
				return
			}
		}
	}
}

// latest replaces any undelivered update so slow clients only see the newest
// cart.
func latest(ch chan []domain.CartLine, lines []domain.CartLine) {
	for {
		select {
		case ch <- lines:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
