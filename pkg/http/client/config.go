package client

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	appconfig "github.com/mediatechnologycenter/api-commons/pkg/core/config"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds every call to an operational route.
	DefaultTimeout             = 2 * time.Second
	DefaultWaitInterval        = 3 * time.Second
	DefaultMaxIdleConnsPerHost = 100
	DefaultIdleConnTimeout     = 90 * time.Second
	// DefaultMaxConnLifetime rotates connections so new replicas get traffic.
	DefaultMaxConnLifetime = 60 * time.Second
	MaxRetriesCap          = 5
)

// ClientConfig configures the client of one api, loaded from clients.<name>:
//
//	clients:
//	  summarizer:
//	    base-url: http://summarizer:5000
//	    timeout: 2s
//	    wait-interval: 3s
//
// Unset durations use the defaults, 0 disables them.
type ClientConfig struct {
	BaseURL             string         `mapstructure:"base-url"`
	Timeout             *time.Duration `mapstructure:"timeout"`
	WaitInterval        *time.Duration `mapstructure:"wait-interval"`
	MaxIdleConnsPerHost *int           `mapstructure:"max-idle-conns-per-host"`
	IdleConnTimeout     *time.Duration `mapstructure:"idle-conn-timeout"`
	MaxConnLifetime     *time.Duration `mapstructure:"max-conn-lifetime"`
}

func (c *ClientConfig) applyDefaults() {
	if c.Timeout == nil {
		c.Timeout = lo.ToPtr(DefaultTimeout)
	}
	if c.WaitInterval == nil {
		c.WaitInterval = lo.ToPtr(DefaultWaitInterval)
	}
	if c.MaxIdleConnsPerHost == nil {
		c.MaxIdleConnsPerHost = lo.ToPtr(DefaultMaxIdleConnsPerHost)
	}
	if c.IdleConnTimeout == nil {
		c.IdleConnTimeout = lo.ToPtr(DefaultIdleConnTimeout)
	}
	if c.MaxConnLifetime == nil {
		c.MaxConnLifetime = lo.ToPtr(DefaultMaxConnLifetime)
	}
}

func (c ClientConfig) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base-url is required")
	}
	return nil
}

// newHTTPClient builds the pooled client shared by every call of an
// APIClient. Per-call deadlines come from the request context, so the
// client itself has no timeout.
func newHTTPClient(cfg ClientConfig, log *zap.Logger) *http.Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	lifetime := *cfg.MaxConnLifetime
	poolSize := *cfg.MaxIdleConnsPerHost

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: poolSize,
		IdleConnTimeout:     *cfg.IdleConnTimeout,
	}
	if lifetime > 0 {
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return newExpiringConn(conn, lifetime), nil
		}
	} else {
		transport.DialContext = dialer.DialContext
	}

	return &http.Client{
		Transport: &retryTransport{
			base:       transport,
			pool:       transport,
			maxRetries: min(poolSize, MaxRetriesCap),
			log:        log,
		},
	}
}

// ProvideAPIClient returns an fx constructor for the client of the api
// configured under clients.<name>.
//
//	fx.Provide(client.ProvideAPIClient("summarizer"))
func ProvideAPIClient(name string) func(*viper.Viper, *zap.Logger) (*APIClient, error) {
	return func(v *viper.Viper, log *zap.Logger) (*APIClient, error) {
		var cfg ClientConfig
		if err := appconfig.UnmarshalKey(v, "clients."+name, &cfg); err != nil {
			return nil, err
		}
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("invalid client config %q: %w", name, err)
		}
		return NewAPIClientFromConfig(cfg, log.With(zap.String("client", name))), nil
	}
}
