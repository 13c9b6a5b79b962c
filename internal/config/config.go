// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rovshanmuradov/orderdesk/internal/logger"
	"github.com/rovshanmuradov/orderdesk/internal/realtime"
	"github.com/rovshanmuradov/orderdesk/internal/wsfeed"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. ORDERDESK_REALTIME_CONNECT_DELAY.
const EnvPrefix = "ORDERDESK"

type Config struct {
	HTTPAddr   string         `mapstructure:"http_addr"`
	Seed       uint64         `mapstructure:"seed"`        // 0 picks a random seed
	SeedOrders int            `mapstructure:"seed_orders"` // 0 picks 50-100 orders
	Realtime   RealtimeConfig `mapstructure:"realtime"`
	Store      StoreConfig    `mapstructure:"store"`
	Feed       FeedConfig     `mapstructure:"feed"`
	Log        logger.Config  `mapstructure:"log"`
}

// RealtimeConfig holds connection simulation settings. Delays are in milliseconds.
type RealtimeConfig struct {
	AutoConnect           bool    `mapstructure:"auto_connect"`
	RandomDisconnect      bool    `mapstructure:"random_disconnect"`
	DisconnectProbability float64 `mapstructure:"disconnect_probability"`
	ConnectDelay          int     `mapstructure:"connect_delay"`
	InitialReconnectDelay int     `mapstructure:"initial_reconnect_delay"`
	MaxReconnectDelay     int     `mapstructure:"max_reconnect_delay"`
	BackoffMultiplier     float64 `mapstructure:"backoff_multiplier"`
	MinMessageInterval    int     `mapstructure:"min_message_interval"`
	MaxMessageInterval    int     `mapstructure:"max_message_interval"`
}

type StoreConfig struct {
	Latency int `mapstructure:"latency"` // milliseconds
}

type FeedConfig struct {
	BufferSize   int `mapstructure:"buffer_size"`
	WriteTimeout int `mapstructure:"write_timeout"` // milliseconds
	PingInterval int `mapstructure:"ping_interval"` // milliseconds
}

const (
	DefaultHTTPAddr     = ":8080"
	DefaultStoreLatency = 500
	DefaultBufferSize   = 64
	DefaultWriteTimeout = 10000
	DefaultPingInterval = 30000
)

func defaults() map[string]interface{} {
	ms := func(d time.Duration) int { return int(d / time.Millisecond) }
	lc := logger.DefaultConfig()

	return map[string]interface{}{
		"http_addr":   DefaultHTTPAddr,
		"seed":        0,
		"seed_orders": 0,

		"realtime.auto_connect":            true,
		"realtime.random_disconnect":       true,
		"realtime.disconnect_probability":  realtime.DefaultRandomDisconnectProbability,
		"realtime.connect_delay":           ms(realtime.DefaultConnectDelay),
		"realtime.initial_reconnect_delay": ms(realtime.DefaultInitialReconnectDelay),
		"realtime.max_reconnect_delay":     ms(realtime.DefaultMaxReconnectDelay),
		"realtime.backoff_multiplier":      realtime.DefaultBackoffMultiplier,
		"realtime.min_message_interval":    ms(realtime.DefaultMinMessageInterval),
		"realtime.max_message_interval":    ms(realtime.DefaultMaxMessageInterval),

		"store.latency": DefaultStoreLatency,

		"feed.buffer_size":   DefaultBufferSize,
		"feed.write_timeout": DefaultWriteTimeout,
		"feed.ping_interval": DefaultPingInterval,

		"log.file":        lc.LogFile,
		"log.max_size":    lc.MaxSize,
		"log.max_age":     lc.MaxAge,
		"log.max_backups": lc.MaxBackups,
		"log.compress":    lc.Compress,
		"log.development": lc.Development,
	}
}

// Load reads the config file at path, if any, applies defaults and
// ORDERDESK_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if _, _, err := net.SplitHostPort(cfg.HTTPAddr); err != nil {
		return fmt.Errorf("invalid http_addr: %w", err)
	}
	if cfg.SeedOrders < 0 {
		return errors.New("invalid seed_orders")
	}
	if err := validateRealtime(cfg.Realtime); err != nil {
		return err
	}
	if cfg.Store.Latency < 0 {
		return errors.New("invalid store.latency")
	}
	if cfg.Feed.BufferSize <= 0 {
		return errors.New("invalid feed.buffer_size")
	}
	if cfg.Feed.WriteTimeout <= 0 {
		return errors.New("invalid feed.write_timeout")
	}
	if cfg.Feed.PingInterval <= 0 {
		return errors.New("invalid feed.ping_interval")
	}
	return nil
}

func validateRealtime(rc RealtimeConfig) error {
	if rc.DisconnectProbability < 0 || rc.DisconnectProbability > 1 {
		return errors.New("realtime.disconnect_probability must be within [0, 1]")
	}
	for name, d := range map[string]int{
		"connect_delay":           rc.ConnectDelay,
		"initial_reconnect_delay": rc.InitialReconnectDelay,
		"max_reconnect_delay":     rc.MaxReconnectDelay,
		"min_message_interval":    rc.MinMessageInterval,
		"max_message_interval":    rc.MaxMessageInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid realtime.%s", name)
		}
	}
	if rc.BackoffMultiplier < 1 {
		return errors.New("realtime.backoff_multiplier must be at least 1")
	}
	if rc.MaxReconnectDelay < rc.InitialReconnectDelay {
		return errors.New("realtime.max_reconnect_delay is below initial_reconnect_delay")
	}
	if rc.MinMessageInterval > rc.MaxMessageInterval {
		return errors.New("realtime.min_message_interval exceeds max_message_interval")
	}
	return nil
}

// RealtimeOptions converts the realtime section into manager options.
// Scheduler, Rand, Generator and Logger are left for the caller.
func (c *Config) RealtimeOptions() realtime.Options {
	rc := c.Realtime
	return realtime.Options{
		EnableRandomDisconnect:      rc.RandomDisconnect,
		RandomDisconnectProbability: realtime.Probability(rc.DisconnectProbability),
		Timing: realtime.Timing{
			ConnectDelay:          millis(rc.ConnectDelay),
			InitialReconnectDelay: millis(rc.InitialReconnectDelay),
			BackoffMultiplier:     rc.BackoffMultiplier,
			MaxReconnectDelay:     millis(rc.MaxReconnectDelay),
			MinMessageInterval:    millis(rc.MinMessageInterval),
			MaxMessageInterval:    millis(rc.MaxMessageInterval),
		},
	}
}

// HubConfig converts the feed section into hub settings.
func (c *Config) HubConfig() wsfeed.Config {
	return wsfeed.Config{
		BufferSize:   c.Feed.BufferSize,
		WriteTimeout: millis(c.Feed.WriteTimeout),
		PingInterval: millis(c.Feed.PingInterval),
	}
}

// StoreLatency returns the simulated store round trip.
func (c *Config) StoreLatency() time.Duration {
	return millis(c.Store.Latency)
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
