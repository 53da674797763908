package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"liefrik/cart-svc/internal/domain"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	minReadBackoff = 100 * time.Millisecond
	maxReadBackoff = 5 * time.Second
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Consumer relays storage changes made by other instances to the local
// subscribers of the session.
type Consumer struct {
	Reader  MessageReader
	Emitter *Emitter
	Origin  string
	Logger  *zap.Logger
}

func NewConsumer(reader MessageReader, emitter *Emitter, origin string, logger *zap.Logger) *Consumer {
	return &Consumer{
		Reader:  reader,
		Emitter: emitter,
		Origin:  origin,
		Logger:  logger,
	}
}

func (c *Consumer) Start(ctx context.Context) {
	c.Logger.Info("starting storage event consumer", zap.String("origin", c.Origin))
	backoff := minReadBackoff
	for {
		message, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.Logger.Info("storage event consumer stopped")
				return
			}
			if errors.Is(err, io.EOF) {
				c.Logger.Info("storage event reader closed")
				return
			}
			c.Logger.Warn("error reading storage event", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				c.Logger.Info("storage event consumer stopped")
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxReadBackoff)
			continue
		}
		backoff = minReadBackoff

		var event domain.StorageEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			c.Logger.Warn("error unmarshaling storage event", zap.Error(err))
			continue
		}

		c.ProcessEvent(event)
	}
}

// ProcessEvent reports whether the event was relayed. Events from this
// instance were already delivered locally when the write happened.
func (c *Consumer) ProcessEvent(event domain.StorageEvent) bool {
	if event.Session == "" || event.Key == "" || event.Origin == c.Origin {
		return false
	}
	c.Logger.Debug("relaying storage event",
		zap.String("origin", event.Origin),
		zap.String("session", event.Session),
		zap.String("key", event.Key),
	)
	c.Emitter.Notify(event.Session, event.Key)
	return true
}
