package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	httpapi "liefrik/cart-svc/internal/api/http"
	"liefrik/cart-svc/internal/backend"
	"liefrik/cart-svc/internal/pricing"
	"liefrik/cart-svc/internal/service"
	"liefrik/cart-svc/internal/storage"
	"liefrik/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type app struct {
	handler   *httpapi.Handler
	emitter   *service.Emitter
	publisher service.EventPublisher
	closers   []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newKVStore(ctx context.Context, settings config.Settings, logger *zap.Logger) (service.KVStore, func() error, error) {
	switch settings.StoreDriver {
	case config.DriverRedis:
		client := config.MustInitRedis(logger)
		return storage.NewRedisKV(client, settings.RedisTTL), client.Close, nil
	case config.DriverPostgres:
		db := config.MustInitPostgres(logger)
		kv := storage.NewPostgresKV(db)
		if err := kv.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return kv, db.Close, nil
	default:
		return storage.NewMemoryKV(), func() error { return nil }, nil
	}
}

func newApp(ctx context.Context, settings config.Settings, logger *zap.Logger) (*app, error) {
	a := &app{emitter: service.NewEmitter()}

	kv, closeKV, err := newKVStore(ctx, settings, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeKV)

	if settings.KafkaBroker != "" {
		writer := config.NewKafkaWriter(settings.KafkaBroker, settings.KafkaTopic)
		a.publisher = storage.NewKafkaPublisher(writer)
		a.closers = append(a.closers, writer.Close)
	}

	prices := pricing.Config{VATRate: settings.VATRate, DeliveryFee: settings.DeliveryFee}
	client := backend.NewClient(backend.Config{BaseURL: settings.BackendURL, Timeout: settings.BackendTimeout}, nil)

	store := service.NewCartStore(kv, a.emitter, a.publisher, settings.InstanceID, logger)
	identities := service.NewIdentityResolver(kv)

	a.handler = &httpapi.Handler{
		Carts:         store,
		Configurators: service.NewConfigurators(store, client, identities, logger),
		Checkout:      service.NewCheckoutService(store, client, identities, prices, logger),
		Identities:    identities,
		Backend:       client,
		QR:            service.ConfirmationQR{BaseURL: settings.PublicURL},
		Config:        httpapi.Config{DemoFallback: settings.DemoFallback, Pricing: prices},
		Logger:        logger,
	}
	return a, nil
}

// startConsumer relays other instances' writes. Every instance needs every
// event, so each one reads with its own consumer group.
func (a *app) startConsumer(ctx context.Context, settings config.Settings, logger *zap.Logger) {
	if settings.KafkaBroker == "" {
		logger.Info("KAFKA_BROKER not set, cross-instance sync disabled")
		return
	}
	reader := config.NewKafkaReader(settings.KafkaBroker, settings.KafkaTopic, "cart-svc-"+settings.InstanceID)
	a.closers = append(a.closers, reader.Close)

	consumer := service.NewConsumer(reader, a.emitter, settings.InstanceID, logger)
	go consumer.Start(ctx)
}

func main() {
	if err := config.LoadEnv(); err != nil {
		panic(err)
	}
	settings, err := config.LoadSettings()
	if err != nil {
		panic(err)
	}
	if settings.InstanceID == "" {
		settings.InstanceID = uuid.NewString()
	}

	logger, err := config.NewLogger(settings.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("service", "cart-svc"), zap.String("instance", settings.InstanceID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, settings, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer a.Close()

	a.startConsumer(ctx, settings, logger)

	logger.Info("store ready",
		zap.String("driver", settings.StoreDriver),
		zap.Float64("vat_rate", settings.VATRate),
		zap.Float64("delivery_fee", settings.DeliveryFee),
		zap.Bool("demo_fallback", settings.DemoFallback),
	)
	if err := httpapi.StartServer(ctx, ":"+settings.Port, httpapi.NewRouter(a.handler), logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return
	}
	logger.Info("cart service stopped")
}
