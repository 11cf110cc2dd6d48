package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mediatechnologycenter/api-commons/pkg/core/logger"
	"github.com/mediatechnologycenter/api-commons/pkg/http/baseapi"
	"github.com/mediatechnologycenter/api-commons/pkg/http/problems"
	"go.uber.org/zap"
)

var errNotReady = errors.New("service is not ready")

// APIClient talks to the operational routes of an api built on baseapi.
type APIClient struct {
	baseURL      string
	http         *http.Client
	timeout      time.Duration
	waitInterval time.Duration
	log          *zap.Logger
	throttler    *logger.Throttler
}

// Option configures an APIClient.
type Option func(*APIClient)

// WithHTTPClient replaces the pooled client, e.g. with a test server's.
func WithHTTPClient(c *http.Client) Option {
	return func(a *APIClient) {
		a.http = c
	}
}

// WithTimeout bounds each call to an operational route.
func WithTimeout(d time.Duration) Option {
	return func(a *APIClient) {
		a.timeout = d
	}
}

// WithWaitInterval sets the polling interval of WaitForReadiness.
func WithWaitInterval(d time.Duration) Option {
	return func(a *APIClient) {
		a.waitInterval = d
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(a *APIClient) {
		a.log = log
	}
}

// NewAPIClient returns a client for the api served at baseURL.
func NewAPIClient(baseURL string, opts ...Option) *APIClient {
	cfg := ClientConfig{BaseURL: baseURL}
	cfg.applyDefaults()
	return newAPIClient(cfg, opts...)
}

// NewAPIClientFromConfig returns a client configured by cfg.
func NewAPIClientFromConfig(cfg ClientConfig, log *zap.Logger) *APIClient {
	cfg.applyDefaults()
	return newAPIClient(cfg, WithLogger(log))
}

func newAPIClient(cfg ClientConfig, opts ...Option) *APIClient {
	a := &APIClient{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		timeout:      *cfg.Timeout,
		waitInterval: *cfg.WaitInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Get(context.Background())
	}
	if a.http == nil {
		a.http = newHTTPClient(cfg, a.log)
	}
	a.throttler = logger.NewThrottler(a.log, 0)
	return a
}

func (a *APIClient) BaseURL() string {
	return a.baseURL
}

// Liveness reports whether the api answers its liveness route with 200.
// A transport error yields a nil response and false.
func (a *APIClient) Liveness(ctx context.Context) (*http.Response, bool) {
	return a.checkRoute(ctx, baseapi.RouteLiveness)
}

// Readiness reports whether the api answers its readiness route with 200.
// A transport error yields a nil response and false.
func (a *APIClient) Readiness(ctx context.Context) (*http.Response, bool) {
	return a.checkRoute(ctx, baseapi.RouteReadiness)
}

func (a *APIClient) checkRoute(ctx context.Context, route string) (*http.Response, bool) {
	resp, err := a.get(ctx, a.baseURL+route, nil)
	if err != nil {
		a.throttler.Info(route, "api is unreachable", zap.String("url", a.baseURL+route), zap.Error(err))
		return nil, false
	}
	return resp, resp.StatusCode == http.StatusOK
}

// Status fetches the api status. An unreachable api yields a nil response,
// a zero Status and no error; an unsuccessful status code is an error.
func (a *APIClient) Status(ctx context.Context) (*http.Response, baseapi.Status, error) {
	resp, err := a.get(ctx, a.baseURL+baseapi.RouteStatus, nil)
	if err != nil {
		a.throttler.Info(baseapi.RouteStatus, "api is unreachable", zap.String("url", a.baseURL+baseapi.RouteStatus), zap.Error(err))
		return nil, baseapi.Status{}, nil
	}
	if err := checkStatus(resp); err != nil {
		return resp, baseapi.Status{}, err
	}

	var status baseapi.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return resp, baseapi.Status{}, fmt.Errorf("failed to decode api status: %w", err)
	}
	resetBody(resp)
	return resp, status, nil
}

// WaitForReadiness polls the readiness route until it reports ready. It
// returns a 503 *problems.Problem when timeout elapses first and the
// context error when ctx is cancelled.
func (a *APIClient) WaitForReadiness(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	policy := backoff.WithContext(backoff.NewConstantBackOff(a.waitInterval), waitCtx)
	err := backoff.Retry(func() error {
		if _, ready := a.Readiness(waitCtx); ready {
			return nil
		}
		a.throttler.Info("wait", "waiting for api readiness", zap.String("url", a.baseURL))
		return errNotReady
	}, policy)
	if err == nil {
		a.log.Info("api is ready", zap.String("url", a.baseURL))
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return problems.ServiceUnavailable(fmt.Sprintf("Service did not become ready before timeout: %s", timeout))
}

// get performs a GET bounded by the client timeout. The returned body is
// already read and can be consumed after the call.
func (a *APIClient) get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	resp.Body = bufferedBody{bytes.NewReader(body)}
	return resp, nil
}

// bufferedBody is a response body held in memory.
type bufferedBody struct {
	*bytes.Reader
}

func (bufferedBody) Close() error { return nil }

// resetBody rewinds a body buffered by get.
func resetBody(resp *http.Response) {
	if b, ok := resp.Body.(bufferedBody); ok {
		_, _ = b.Seek(0, io.SeekStart)
	}
}

// checkStatus returns a *problems.Problem for non-2xx responses, decoded
// from the body when the api answered with one.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	resetBody(resp)

	var problem problems.Problem
	if json.Unmarshal(body, &problem) == nil && problem.Status != 0 {
		return &problem
	}
	detail := strings.TrimSpace(string(body))
	var text string
	if json.Unmarshal(body, &text) == nil {
		detail = text
	}
	return problems.New(resp.StatusCode, detail)
}
