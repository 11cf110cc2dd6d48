package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mediatechnologycenter/api-commons/pkg/http/gate"
	"github.com/mediatechnologycenter/api-commons/pkg/http/problems"
	"github.com/stretchr/testify/require"
)

var testExempt = gate.ExemptRoutes{
	gate.Exact("/api"),
	gate.Prefix("/api/liveness"),
	gate.Prefix("/api/readiness"),
	gate.Prefix("/api/status"),
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) problems.Problem {
	t.Helper()
	var p problems.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p), w.Body.String())
	return p
}
