package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Settings struct {
	Port           string
	StoreDriver    string
	RedisTTL       time.Duration
	KafkaBroker    string
	KafkaTopic     string
	BackendURL     string
	BackendTimeout time.Duration
	VATRate        float64
	DeliveryFee    float64
	DemoFallback   bool
	PublicURL      string
	InstanceID     string
	LogLevel       string
}

// LoadEnv reads .env files into the environment. Missing files are fine,
// variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func LoadSettings() (Settings, error) {
	s := Settings{
		Port:        getEnv("PORT", "8084"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		KafkaBroker: os.Getenv("KAFKA_BROKER"),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "cart-storage"),
		BackendURL:  getEnv("BACKEND_URL", "http://localhost:5000/api"),
		PublicURL:   getEnv("PUBLIC_URL", "http://localhost:3000"),
		InstanceID:  os.Getenv("INSTANCE_ID"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	switch s.StoreDriver {
	case DriverMemory, DriverRedis, DriverPostgres:
	default:
		return s, fmt.Errorf("STORE_DRIVER: unsupported driver %q", s.StoreDriver)
	}

	var err error
	if s.RedisTTL, err = durationEnv("REDIS_TTL", 0); err != nil {
		return s, err
	}
	if s.BackendTimeout, err = durationEnv("BACKEND_TIMEOUT", 10*time.Second); err != nil {
		return s, err
	}
	if s.VATRate, err = floatEnv("VAT_RATE", 0.05); err != nil {
		return s, err
	}
	if s.DeliveryFee, err = floatEnv("DELIVERY_FEE", 8.57); err != nil {
		return s, err
	}
	if s.DemoFallback, err = boolEnv("DEMO_FALLBACK", true); err != nil {
		return s, err
	}
	if s.VATRate < 0 || s.DeliveryFee < 0 {
		return s, errors.New("VAT_RATE and DELIVERY_FEE must not be negative")
	}
	return s, nil
}

func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func MustInitPostgres(logger *zap.Logger) *sql.DB {
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbName := os.Getenv("DB_NAME")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")

	connStr := "host=" + dbHost + " port=" + dbPort + " user=" + dbUser +
		" password=" + dbPassword + " dbname=" + dbName + " sslmode=disable"

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	if err = db.Ping(); err != nil {
		logger.Fatal("failed to ping database", zap.String("host", dbHost), zap.Error(err))
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	return db
}

func MustInitRedis(logger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_HOST") + ":" + os.Getenv("REDIS_PORT"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}

	return client
}

// NewKafkaReader starts reading at the newest offset: storage events only
// matter to subscribers that are connected right now.
func NewKafkaReader(broker, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
	})
}

func NewKafkaWriter(broker, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
