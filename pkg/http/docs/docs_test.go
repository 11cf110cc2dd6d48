package docs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRoutes(t *testing.T) {
	docs, openapi, redoc := Routes("/api")
	assert.Equal(t, "/api/docs", docs)
	assert.Equal(t, "/api/openapi.json", openapi)
	assert.Equal(t, "/api/redoc", redoc)

	docs, _, _ = Routes("/internal/")
	assert.Equal(t, "/internal/docs", docs)

	docs, _, _ = Routes("")
	assert.Equal(t, "/docs", docs)
}

func TestRegister_ConvertsYAMLToJSON(t *testing.T) {
	router := gin.New()
	require.NoError(t, Register(router, Config{
		Prefix:  "/api",
		OpenAPI: []byte("openapi: 3.0.0\ninfo:\n  title: Test API\n  version: 1.2.3\n"),
	}))

	w := get(router, "/api/openapi.json")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"openapi":"3.0.0","info":{"title":"Test API","version":"1.2.3"}}`, w.Body.String())
}

func TestRegister_InvalidDocument(t *testing.T) {
	err := Register(gin.New(), Config{OpenAPI: []byte("openapi: [unclosed")})
	assert.ErrorContains(t, err, "failed to parse openapi document")
}

func TestRegister_GeneratesDocumentFromRoutes(t *testing.T) {
	router := gin.New()
	require.NoError(t, Register(router, Config{Prefix: "/api", Title: "Summarizer"}))
	router.POST("/api/inference/:model", func(c *gin.Context) {})

	w := get(router, "/api/openapi.json")
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		OpenAPI string `json:"openapi"`
		Info    struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"info"`
		Paths map[string]map[string]struct {
			OperationID string `json:"operationId"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))

	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Equal(t, "Summarizer", doc.Info.Title)
	assert.Equal(t, defaultVersion, doc.Info.Version)
	require.Contains(t, doc.Paths, "/api/inference/{model}")
	assert.Equal(t, "post_api_inference_model", doc.Paths["/api/inference/{model}"]["post"].OperationID)
	assert.Contains(t, doc.Paths, "/api/docs")
}

func TestRegister_Pages(t *testing.T) {
	router := gin.New()
	require.NoError(t, Register(router, Config{Prefix: "/api"}))

	t.Run("swagger ui", func(t *testing.T) {
		w := get(router, "/api/docs")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		body := w.Body.String()
		assert.Contains(t, body, "<title>MTC Api - Swagger UI</title>")
		assert.Contains(t, body, "swagger-ui-dist@5/swagger-ui-bundle.js")
		assert.Contains(t, body, "openapi.json")
	})

	t.Run("redoc", func(t *testing.T) {
		w := get(router, "/api/redoc")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `<redoc spec-url="/api/openapi.json">`)
	})

	t.Run("other prefixes are not served", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(router, "/docs").Code)
	})
}

func TestNewDocsModule(t *testing.T) {
	engine := gin.New()
	app := fxtest.New(t,
		fx.Supply(engine),
		NewDocsModule(Config{Prefix: "/internal", OpenAPI: []byte("openapi: 3.0.3\n")}),
	)
	app.RequireStart().RequireStop()

	w := get(engine, "/internal/openapi.json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"openapi":"3.0.3"}`, w.Body.String())
	assert.Equal(t, http.StatusOK, get(engine, "/internal/docs").Code)
}
