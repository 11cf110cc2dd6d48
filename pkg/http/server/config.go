package server

import (
	"fmt"
	"strconv"
	"time"

	appconfig "github.com/mediatechnologycenter/api-commons/pkg/core/config"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is read from the server key. Every protection layer is enabled
// unless its enabled flag is explicitly false:
//
//	server:
//	  port: 5000
//	  timeout:
//	    request-timeout: 30s
//	  rate-limit:
//	    enabled: false
//	  cors:
//	    allow-origins: ["https://dashboard.example.org"]
type Config struct {
	Port int `mapstructure:"port"`

	Connection     ConnectionConfig     `mapstructure:"connection"`
	Timeout        TimeoutConfig        `mapstructure:"timeout"`
	RateLimit      RateLimitConfig      `mapstructure:"rate-limit"`
	Bulkhead       BulkheadConfig       `mapstructure:"bulkhead"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit-breaker"`

	// CORS is off until at least one origin is listed.
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow-origins"`
}

// ConnectionConfig holds the net/http limits. Hitting one of them drops the
// connection without a response, so WriteTimeout stays above the request
// timeout.
type ConnectionConfig struct {
	ReadHeaderTimeout time.Duration `mapstructure:"read-header-timeout"`
	ReadTimeout       time.Duration `mapstructure:"read-timeout"`
	WriteTimeout      time.Duration `mapstructure:"write-timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle-timeout"`
	MaxHeaderBytes    int           `mapstructure:"max-header-bytes"`
}

type TimeoutConfig struct {
	Enabled        *bool         `mapstructure:"enabled"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

type RateLimitConfig struct {
	Enabled           *bool `mapstructure:"enabled"`
	RequestsPerSecond int   `mapstructure:"requests-per-second"`
	Burst             int   `mapstructure:"burst"`
}

type BulkheadConfig struct {
	Enabled       *bool         `mapstructure:"enabled"`
	MaxConcurrent int           `mapstructure:"max-concurrent"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type CircuitBreakerConfig struct {
	Enabled          *bool         `mapstructure:"enabled"`
	FailureThreshold uint32        `mapstructure:"failure-threshold"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Interval         time.Duration `mapstructure:"interval"`
	MaxRequests      uint32        `mapstructure:"max-requests"`
}

const (
	defaultPort = 5000

	defaultReadHeaderTimeout = 10 * time.Second
	defaultReadTimeout       = 30 * time.Second
	defaultWriteTimeout      = 40 * time.Second
	writeTimeoutMargin       = 10 * time.Second
	defaultIdleTimeout       = 2 * time.Minute
	defaultMaxHeaderBytes    = 1 << 20

	defaultRequestTimeout = 30 * time.Second

	defaultRequestsPerSecond = 1000
	defaultBurst             = 100

	defaultMaxConcurrent   = 500
	defaultBulkheadTimeout = 100 * time.Millisecond

	defaultFailureThreshold = 5
	defaultOpenTimeout      = time.Minute
	defaultResetInterval    = time.Minute
	defaultHalfOpenRequests = 1
)

func newConfig(v *viper.Viper, logger *zap.Logger) (Config, error) {
	var cfg Config
	if err := appconfig.UnmarshalKey(v, "server", &cfg); err != nil {
		return cfg, err
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	logger.Info("loaded server config", zap.Any("config", cfg))
	return cfg, nil
}

// Addr is the listen address for Port on all interfaces.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// SetDefaults fills every unset field. Static configs passed through
// WithServerConfig go through it as well.
func (c *Config) SetDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	c.Timeout.setDefaults()
	c.Connection.setDefaults(c.Timeout)
	c.RateLimit.setDefaults()
	c.Bulkhead.setDefaults()
	c.CircuitBreaker.setDefaults()
}

func enabled(flag **bool) bool {
	if *flag == nil {
		*flag = lo.ToPtr(true)
	}
	return **flag
}

func setIfZero[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

func (c *ConnectionConfig) setDefaults(timeout TimeoutConfig) {
	writeTimeout := defaultWriteTimeout
	if timeout.Enabled != nil && *timeout.Enabled && timeout.RequestTimeout > 0 {
		writeTimeout = timeout.RequestTimeout + writeTimeoutMargin
	}

	setIfZero(&c.ReadHeaderTimeout, defaultReadHeaderTimeout)
	setIfZero(&c.ReadTimeout, defaultReadTimeout)
	setIfZero(&c.WriteTimeout, writeTimeout)
	setIfZero(&c.IdleTimeout, defaultIdleTimeout)
	setIfZero(&c.MaxHeaderBytes, defaultMaxHeaderBytes)
}

func (c *TimeoutConfig) setDefaults() {
	if enabled(&c.Enabled) {
		setIfZero(&c.RequestTimeout, defaultRequestTimeout)
	}
}

func (c *RateLimitConfig) setDefaults() {
	if !enabled(&c.Enabled) {
		return
	}
	setIfZero(&c.RequestsPerSecond, defaultRequestsPerSecond)
	setIfZero(&c.Burst, defaultBurst)
}

func (c *BulkheadConfig) setDefaults() {
	if !enabled(&c.Enabled) {
		return
	}
	setIfZero(&c.MaxConcurrent, defaultMaxConcurrent)
	setIfZero(&c.Timeout, defaultBulkheadTimeout)
}

func (c *CircuitBreakerConfig) setDefaults() {
	if !enabled(&c.Enabled) {
		return
	}
	setIfZero(&c.FailureThreshold, defaultFailureThreshold)
	setIfZero(&c.Timeout, defaultOpenTimeout)
	setIfZero(&c.Interval, defaultResetInterval)
	setIfZero(&c.MaxRequests, defaultHalfOpenRequests)
}
