package middleware

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

type mwIn struct {
	fx.In
	Middlewares []Middleware `group:"gin_mw"`
}

func provideGinAndHandler(in mwIn) (*gin.Engine, http.Handler) {
	e := NewEngine(in.Middlewares...)
	return e, e
}

// NewEngine builds a gin engine with the middlewares installed in priority
// order. Routes are registered on the returned engine afterwards.
func NewEngine(mws ...Middleware) *gin.Engine {
	engine := gin.New(func(e *gin.Engine) {
		e.ContextWithFallback = true
	})

	sorted := append([]Middleware(nil), mws...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	for _, m := range sorted {
		if m.Handler == nil {
			continue
		}
		engine.Use(m.Handler)
	}

	return engine
}
