package docs

import (
	"fmt"
	"html/template"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"sigs.k8s.io/yaml"
)

const (
	defaultTitle   = "MTC Api"
	defaultVersion = "0.1.0"
)

// Config describes where the API documentation is served.
//
// OpenAPI may be YAML or JSON. When it is empty a minimal document is
// generated from the routes registered on the engine at request time.
type Config struct {
	Prefix  string
	Title   string
	Version string
	OpenAPI []byte
}

// Routes returns the docs, openapi.json and redoc paths under prefix.
func Routes(prefix string) (docs, openapi, redoc string) {
	prefix = strings.TrimSuffix(prefix, "/")
	return prefix + "/docs", prefix + "/openapi.json", prefix + "/redoc"
}

// Register serves Swagger UI, ReDoc and the OpenAPI document on engine.
func Register(engine *gin.Engine, cfg Config) error {
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}
	if cfg.Version == "" {
		cfg.Version = defaultVersion
	}

	var document []byte
	if len(cfg.OpenAPI) > 0 {
		converted, err := yaml.YAMLToJSON(cfg.OpenAPI)
		if err != nil {
			return fmt.Errorf("failed to parse openapi document: %w", err)
		}
		document = converted
	}

	docsRoute, openapiRoute, redocRoute := Routes(cfg.Prefix)
	page := pageData{Title: cfg.Title, SpecURL: openapiRoute}

	engine.GET(openapiRoute, func(c *gin.Context) {
		if document != nil {
			c.Data(http.StatusOK, "application/json", document)
			return
		}
		c.JSON(http.StatusOK, generate(engine.Routes(), cfg))
	})
	engine.GET(docsRoute, func(c *gin.Context) {
		renderPage(c, swaggerPage, page)
	})
	engine.GET(redocRoute, func(c *gin.Context) {
		renderPage(c, redocPage, page)
	})

	return nil
}

type pageData struct {
	Title   string
	SpecURL string
}

var (
	swaggerPage = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>{{.Title}} - Swagger UI</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '{{.SpecURL}}',
      dom_id: '#swagger-ui'
    });
  </script>
</body>
</html>`))

	redocPage = template.Must(template.New("redoc").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>{{.Title}} - ReDoc</title>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body>
  <redoc spec-url="{{.SpecURL}}"></redoc>
  <script src="https://cdn.jsdelivr.net/npm/redoc@2/bundles/redoc.standalone.js"></script>
</body>
</html>`))
)

func renderPage(c *gin.Context, tmpl *template.Template, data pageData) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := tmpl.Execute(c.Writer, data); err != nil {
		_ = c.Error(err)
	}
}

var pathParam = regexp.MustCompile(`[:*]([A-Za-z0-9_]+)`)

type operation struct {
	OperationID string              `json:"operationId"`
	Responses   map[string]response `json:"responses"`
}

type response struct {
	Description string `json:"description"`
}

// generate builds an OpenAPI 3 document listing every registered route.
func generate(routes gin.RoutesInfo, cfg Config) map[string]any {
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})

	paths := map[string]map[string]operation{}
	for _, r := range routes {
		path := pathParam.ReplaceAllString(r.Path, "{$1}")
		if paths[path] == nil {
			paths[path] = map[string]operation{}
		}
		paths[path][strings.ToLower(r.Method)] = operation{
			OperationID: operationID(r.Method, path),
			Responses:   map[string]response{"200": {Description: "Successful Response"}},
		}
	}

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]string{
			"title":   cfg.Title,
			"version": cfg.Version,
		},
		"paths": paths,
	}
}

func operationID(method, path string) string {
	replacer := strings.NewReplacer("/", "_", "{", "", "}", "", ".", "_", "-", "_")
	return strings.ToLower(method) + strings.TrimRight(replacer.Replace(path), "_")
}
