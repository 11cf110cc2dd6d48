package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mediatechnologycenter/api-commons/pkg/http/gate"
	"github.com/mediatechnologycenter/api-commons/pkg/http/problems"
	"github.com/mediatechnologycenter/api-commons/pkg/http/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRateLimiter struct {
	allow bool
	calls atomic.Int32
}

func (m *mockRateLimiter) Allow() bool {
	m.calls.Add(1)
	return m.allow
}

func chain(handlers ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(problemMiddleware())
	router.Use(handlers...)
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	router.GET("/api/inference", ok)
	router.GET("/api/liveness", ok)
	return router
}

func TestTimeoutMiddleware(t *testing.T) {
	t.Run("renders 504 when the handler runs past the deadline", func(t *testing.T) {
		router := gin.New()
		router.Use(problemMiddleware(), newTimeoutMiddleware(20*time.Millisecond, testExempt))
		router.GET("/api/inference", func(c *gin.Context) {
			<-c.Request.Context().Done()
		})

		w := serve(router, http.MethodGet, "/api/inference")

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		p := decodeProblem(t, w)
		assert.Equal(t, "request took too long to process", p.Detail)
		assert.Equal(t, "/api/inference", p.Instance)
	})

	t.Run("fast handler is untouched", func(t *testing.T) {
		router := chain(newTimeoutMiddleware(time.Second, testExempt))

		w := serve(router, http.MethodGet, "/api/inference")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("late response written by the handler is kept", func(t *testing.T) {
		router := gin.New()
		router.Use(problemMiddleware(), newTimeoutMiddleware(10*time.Millisecond, testExempt))
		router.GET("/api/inference", func(c *gin.Context) {
			<-c.Request.Context().Done()
			c.String(http.StatusOK, "late")
		})

		w := serve(router, http.MethodGet, "/api/inference")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "late", w.Body.String())
	})

	t.Run("operational routes get no deadline", func(t *testing.T) {
		router := gin.New()
		router.Use(newTimeoutMiddleware(time.Millisecond, testExempt))
		var hasDeadline bool
		router.GET("/api/liveness", func(c *gin.Context) {
			_, hasDeadline = c.Request.Context().Deadline()
			c.Status(http.StatusOK)
		})

		serve(router, http.MethodGet, "/api/liveness")

		assert.False(t, hasDeadline)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		limiter := &mockRateLimiter{allow: true}
		router := chain(newRateLimitMiddleware(limiter, testExempt))

		w := serve(router, http.MethodGet, "/api/inference")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 1, limiter.calls.Load())
	})

	t.Run("rejects requests over the limit", func(t *testing.T) {
		router := chain(newRateLimitMiddleware(&mockRateLimiter{allow: false}, testExempt))

		w := serve(router, http.MethodGet, "/api/inference")

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "rate limit exceeded, please try again later", decodeProblem(t, w).Detail)
	})

	t.Run("operational routes are not limited", func(t *testing.T) {
		limiter := &mockRateLimiter{allow: false}
		router := chain(newRateLimitMiddleware(limiter, testExempt))

		w := serve(router, http.MethodGet, "/api/liveness")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, limiter.calls.Load())
	})
}

func TestHTTPBulkheadMiddleware(t *testing.T) {
	t.Run("rejects requests once every slot is taken", func(t *testing.T) {
		entered := make(chan struct{})
		release := make(chan struct{})

		router := gin.New()
		router.Use(problemMiddleware(), newHTTPBulkheadMiddleware(1, 20*time.Millisecond, testExempt, zap.NewNop()))
		router.GET("/api/slow", func(c *gin.Context) {
			close(entered)
			<-release
			c.Status(http.StatusOK)
		})
		router.GET("/api/inference", func(c *gin.Context) { c.Status(http.StatusOK) })
		router.GET("/api/liveness", func(c *gin.Context) { c.Status(http.StatusOK) })

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			serve(router, http.MethodGet, "/api/slow")
		}()
		<-entered

		w := serve(router, http.MethodGet, "/api/inference")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "too many concurrent requests, please try again later", decodeProblem(t, w).Detail)

		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/liveness").Code)

		close(release)
		wg.Wait()

		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/inference").Code)
	})
}

func TestCircuitBreakerMiddleware(t *testing.T) {
	cfg := server.CircuitBreakerConfig{FailureThreshold: 2, Timeout: time.Minute, Interval: time.Minute, MaxRequests: 1}

	t.Run("opens after consecutive server errors", func(t *testing.T) {
		router := gin.New()
		router.Use(problemMiddleware(), newCircuitBreakerMiddleware(newCircuitBreaker(cfg, zap.NewNop()), testExempt))
		router.GET("/api/inference", func(c *gin.Context) { c.String(http.StatusInternalServerError, "fail") })
		router.GET("/api/liveness", func(c *gin.Context) { c.Status(http.StatusOK) })

		assert.Equal(t, http.StatusInternalServerError, serve(router, http.MethodGet, "/api/inference").Code)
		assert.Equal(t, http.StatusInternalServerError, serve(router, http.MethodGet, "/api/inference").Code)

		w := serve(router, http.MethodGet, "/api/inference")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "service is temporarily unavailable due to circuit breaker", decodeProblem(t, w).Detail)

		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/liveness").Code)
	})

	t.Run("aborted requests are not counted", func(t *testing.T) {
		g, err := gate.NewGate(func(ctx context.Context) (bool, error) { return false, nil }, testExempt)
		require.NoError(t, err)

		router := gin.New()
		router.Use(
			problemMiddleware(),
			newCircuitBreakerMiddleware(newCircuitBreaker(cfg, zap.NewNop()), testExempt),
			g.Handler(),
		)
		router.GET("/api/inference", func(c *gin.Context) { c.Status(http.StatusOK) })

		for range 5 {
			w := serve(router, http.MethodGet, "/api/inference")
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			assert.JSONEq(t, `"`+gate.NotReadyDetail+`"`, w.Body.String())
		}
	})

	t.Run("aborted handler errors are counted", func(t *testing.T) {
		router := gin.New()
		router.Use(problemMiddleware(), newCircuitBreakerMiddleware(newCircuitBreaker(cfg, zap.NewNop()), testExempt))
		router.GET("/api/inference", func(c *gin.Context) {
			_ = c.Error(errors.New("model crashed"))
			c.Abort()
		})

		assert.Equal(t, http.StatusInternalServerError, serve(router, http.MethodGet, "/api/inference").Code)
		assert.Equal(t, http.StatusInternalServerError, serve(router, http.MethodGet, "/api/inference").Code)

		w := serve(router, http.MethodGet, "/api/inference")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "service is temporarily unavailable due to circuit breaker", decodeProblem(t, w).Detail)
	})

	t.Run("aborted client errors are not counted", func(t *testing.T) {
		router := gin.New()
		router.Use(problemMiddleware(), newCircuitBreakerMiddleware(newCircuitBreaker(cfg, zap.NewNop()), testExempt))
		router.GET("/api/inference", func(c *gin.Context) {
			_ = c.Error(errors.New("missing text")).SetMeta(problems.New(http.StatusBadRequest, "missing text"))
			c.Abort()
		})

		for range 5 {
			assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/inference").Code)
		}
	})
}

func TestCORSMiddleware(t *testing.T) {
	t.Run("disabled without origins", func(t *testing.T) {
		assert.Nil(t, newCORSMiddleware(server.CORSConfig{}))
	})

	cors := newCORSMiddleware(server.CORSConfig{AllowOrigins: []string{"https://dashboard.example.com"}})
	require.NotNil(t, cors)
	router := gin.New()
	router.Use(cors)
	router.GET("/api/inference", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("answers preflight for allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/inference", nil)
		req.Header.Set("Origin", "https://dashboard.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://dashboard.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	})

	t.Run("rejects unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/inference", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
