package client

import (
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

var retryableErrors = []error{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ENETUNREACH,
	syscall.EPIPE,
	io.EOF,
	io.ErrUnexpectedEOF,
	net.ErrClosed,
}

// retryTransport retries requests that failed on a dead connection, e.g.
// while an api restarts. Retries are immediate. Once they are used up the
// idle pool is dropped and one last attempt is made on a fresh connection.
type retryTransport struct {
	base       http.RoundTripper
	pool       *http.Transport
	maxRetries int
	log        *zap.Logger
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	attempt := 0
	for attempt <= t.maxRetries {
		resp, err := t.send(req, attempt)
		switch {
		case err == nil:
			return resp, nil
		case errors.Is(err, ErrConnExpired):
			continue
		case !isRetryableError(err):
			return nil, err
		}

		attempt++
		if t.log != nil {
			t.log.Debug("retrying request on a new connection",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
	}

	if t.pool != nil {
		t.pool.CloseIdleConnections()
	}
	return t.send(req, attempt)
}

func (t *retryTransport) send(req *http.Request, attempt int) (*http.Response, error) {
	if attempt == 0 {
		return t.base.RoundTrip(req)
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return t.base.RoundTrip(retry)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	return lo.ContainsBy(retryableErrors, func(target error) bool {
		return errors.Is(err, target)
	})
}
