package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type ContentType string

const (
	ContentTypeJSON ContentType = "application/json"
	ContentTypeText ContentType = "text/plain"
)

// AuthHeaders returns a bearer Authorization header, plus Content-Type when
// contentType is set.
func AuthHeaders(accessToken string, contentType ContentType) http.Header {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+accessToken)
	if contentType != "" {
		header.Set("Content-Type", string(contentType))
	}
	return header
}

type ParallelGetOptions struct {
	// AccessToken is sent as bearer token when set.
	AccessToken     string
	FollowRedirects bool
	// RaiseForStatus turns missing responses and non-2xx status codes into
	// an error.
	RaiseForStatus bool
	// Concurrency limits the requests in flight; 0 means no limit.
	Concurrency int
}

// ParallelGet fetches every url concurrently. Each request is bounded by the
// client timeout; a url whose request failed maps to a nil response.
func (a *APIClient) ParallelGet(ctx context.Context, urls []string, opts ParallelGetOptions) (map[string]*http.Response, error) {
	var header http.Header
	if opts.AccessToken != "" {
		header = AuthHeaders(opts.AccessToken, "")
	}

	getter := a
	if !opts.FollowRedirects {
		getter = a.withoutRedirects()
	}

	var (
		mu        sync.Mutex
		responses = make(map[string]*http.Response, len(urls))
		g         errgroup.Group
	)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	for _, url := range urls {
		responses[url] = nil
		g.Go(func() error {
			resp, err := getter.get(ctx, url, header)
			if err != nil {
				a.log.Debug("parallel get failed", zap.String("url", url), zap.Error(err))
				return nil
			}
			mu.Lock()
			responses[url] = resp
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if opts.RaiseForStatus {
		for _, url := range urls {
			resp := responses[url]
			if resp == nil {
				return responses, fmt.Errorf("no response from %s", url)
			}
			if err := checkStatus(resp); err != nil {
				return responses, fmt.Errorf("request to %s failed: %w", url, err)
			}
		}
	}
	return responses, nil
}

func (a *APIClient) withoutRedirects() *APIClient {
	c := *a.http
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	clone := *a
	clone.http = &c
	return &clone
}
