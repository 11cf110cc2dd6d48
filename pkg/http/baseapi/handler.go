package baseapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mediatechnologycenter/api-commons/pkg/core/logger"
	"github.com/mediatechnologycenter/api-commons/pkg/core/readiness"
	"github.com/mediatechnologycenter/api-commons/pkg/http/problems"
	"go.uber.org/zap"
)

const notReadyDetail = "Service is not yet ready"

var errNotReady = errors.New("service is not yet ready")

type componentSource interface {
	GetStatus() readiness.TrackerStatus
}

type handler struct {
	predicate  readiness.Predicate
	cfg        Config
	components componentSource
}

func newHandler(predicate readiness.Predicate, cfg Config, components componentSource) *handler {
	return &handler{predicate: predicate, cfg: cfg, components: components}
}

func registerRoutes(r gin.IRoutes, h *handler) {
	r.GET(RouteIndex, h.Index)
	r.GET(RouteLiveness, h.Liveness)
	r.GET(RouteReadiness, h.Readiness)
	r.GET(RouteStatus, h.Status)
}

func (h *handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, h.cfg.IndexMessage)
}

// Liveness never consults readiness.
func (h *handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, h.cfg.LivenessMessage)
}

func (h *handler) Readiness(c *gin.Context) {
	ready, ok := h.evaluate(c)
	if !ok {
		return
	}
	if !ready {
		problem := problems.ServiceUnavailable(notReadyDetail)
		problem.Instance = c.Request.URL.Path
		_ = c.Error(errNotReady).SetMeta(problem)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, fmt.Sprintf("Service readiness: [%t]", ready))
}

// Status answers 200 even while the service is not ready. A failing
// predicate is reported as not ready.
func (h *handler) Status(c *gin.Context) {
	ctx := c.Request.Context()

	ready, err := readiness.Evaluate(ctx, h.predicate)
	if err != nil {
		if ctx.Err() != nil {
			c.Abort()
			return
		}
		logger.Get(ctx).Warn("readiness check failed", zap.Error(err))
		ready = false
	}

	status := Status{
		Readiness:    ready,
		GPUSupported: h.cfg.GPUSupported,
		GPUEnabled:   h.cfg.GPUEnabled,
		Tags:         h.cfg.Tags,
	}
	if h.components != nil {
		status.Components = h.components.GetStatus().Components
	}
	c.JSON(http.StatusOK, status)
}

// evaluate runs the predicate once. On error the request is aborted and
// false is returned for ok.
func (h *handler) evaluate(c *gin.Context) (ready bool, ok bool) {
	ctx := c.Request.Context()

	ready, err := readiness.Evaluate(ctx, h.predicate)
	if err == nil {
		return ready, true
	}
	if ctx.Err() == nil {
		_ = c.Error(fmt.Errorf("readiness check failed: %w", err))
	}
	c.Abort()
	return false, false
}
