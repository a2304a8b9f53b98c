package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestLoadSweepConfig_Defaults(t *testing.T) {
    c := LoadSweepConfig()
    assert.Equal(t, time.Minute, c.Interval)
    assert.Equal(t, 15*time.Minute, c.BookingTTL)
    assert.Equal(t, 30*time.Second, c.Timeout)
    assert.Equal(t, 35*time.Second, c.LockTTL)
    assert.False(t, c.LockEnabled)
}

func TestLoadSweepConfig_ClampsTimeout(t *testing.T) {
    t.Setenv("SWEEP_INTERVAL", "10s")
    t.Setenv("SWEEP_TIMEOUT", "1m")
    t.Setenv("BOOKING_TTL", "-5m")
    t.Setenv("SWEEP_LOCK_ENABLED", "true")

    c := LoadSweepConfig()
    assert.Equal(t, 10*time.Second, c.Timeout)
    assert.Equal(t, 15*time.Minute, c.BookingTTL)
    assert.True(t, c.LockEnabled)
}

func TestLoadSweepConfig_NonPositiveFallsBack(t *testing.T) {
    t.Setenv("SWEEP_INTERVAL", "0s")
    t.Setenv("SWEEP_TIMEOUT", "-1s")
    t.Setenv("SWEEP_LOCK_TTL", "0s")

    c := LoadSweepConfig()
    assert.Equal(t, time.Minute, c.Interval)
    assert.Equal(t, time.Minute, c.Timeout)
    assert.Equal(t, time.Minute+5*time.Second, c.LockTTL)
}

func TestLoadEventsConfig(t *testing.T) {
    t.Setenv("EVENT_BROKER", "Kafka")
    t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
    t.Setenv("RABBITMQ_URL", "")
    t.Setenv("AMQP_URL", "amqp://fallback/")

    c := LoadEventsConfig()
    assert.Equal(t, "kafka", c.Broker)
    assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.KafkaBrokers)
    assert.Equal(t, "amqp://fallback/", c.AMQPURL)

    t.Setenv("RABBITMQ_URL", "amqp://primary/")
    assert.Equal(t, "amqp://primary/", LoadEventsConfig().AMQPURL)
}

func TestLoad(t *testing.T) {
    for k, v := range map[string]string{
        "APP_ENV": "test", "APP_PORT": "8080", "DB_USER": "u", "DB_HOST": "h",
        "DB_PORT": "3306", "DB_NAME": "parking", "JWT_SECRET": "s", "DB_MIGRATE": "false",
    } {
        t.Setenv(k, v)
    }
    c := Load()
    assert.Equal(t, "8080", c.Port)
    assert.Equal(t, "info", c.LogLevel)
    assert.False(t, c.Migrate)
    assert.Equal(t, "rabbitmq", c.Events.Broker)
}

func TestLoadRateLimitConfig_Normalizes(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    c := LoadRateLimitConfig()
    assert.Equal(t, 1, c.Capacity)
    assert.Equal(t, 5*time.Minute, c.TTL)
}

func TestLoadRedisConfig(t *testing.T) {
    t.Setenv("REDIS_ADDR", "cache:6379")
    assert.Equal(t, "cache:6379", LoadRedisConfig().Addr)

    t.Setenv("REDIS_HOST", "redis")
    t.Setenv("REDIS_PORT", "6380")
    assert.Equal(t, "redis:6380", LoadRedisConfig().Addr)
}
