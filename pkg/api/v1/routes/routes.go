// Package routes defines the job service routes and URL structure
package routes

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/upgrowplan/upgrowplan/pkg/types/jobs"
)

/*

Routes are ordered GET, POST in the order the fiber router has to see them:
a parameter segment matches anything, so the deepest route is registered first.

The job service is collection based. Every job kind lives under its own
collection (e.g. /research, /synthesis) and exposes its result under a
kind specific sub path (e.g. /research/:id/detail).

*/

// API base configuration
const (
	// DefaultPort is the default port of the job service
	DefaultPort = "8080"
)

// DefaultBaseURL is the default base URL for the job service
var DefaultBaseURL = fmt.Sprintf("http://localhost:%s", DefaultPort)

// Route names for lookup
const (
	// Health check
	HealthCheck = "HealthCheck"

	// Job routes
	GetJobResult = "GetJobResult"
	GetJob       = "GetJob"
	SubmitJob    = "SubmitJob"
)

// Route parameter names
const (
	ParamCollection = "collection"
	ParamID         = "id"
	ParamResult     = "result"
)

// JobHandler serves the job routes
type JobHandler interface {
	SubmitJob(c *fiber.Ctx) error
	GetJob(c *fiber.Ctx) error
	GetJobResult(c *fiber.Ctx) error
}

// routeCache stores extracted routes for use prior to compilation
var (
	routeCache     map[string]string
	routeCacheMu   sync.RWMutex
	routeCacheInit sync.Once
)

// RegisterRoutes configures the job service routes on app
func RegisterRoutes(app *fiber.App, jobHandler JobHandler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	}).Name(HealthCheck)

	app.Get("/:collection/:id/:result", jobHandler.GetJobResult).Name(GetJobResult)
	app.Get("/:collection/:id", jobHandler.GetJob).Name(GetJob)
	app.Post("/:collection", jobHandler.SubmitJob).Name(SubmitJob)
}

type noopHandler struct{}

func (noopHandler) SubmitJob(*fiber.Ctx) error    { return nil }
func (noopHandler) GetJob(*fiber.Ctx) error       { return nil }
func (noopHandler) GetJobResult(*fiber.Ctx) error { return nil }

// initRouteCache initializes the route cache by creating a mock app and extracting routes
func initRouteCache() {
	routeCacheInit.Do(func() {
		cache := make(map[string]string)

		app := fiber.New()
		RegisterRoutes(app, noopHandler{})

		for _, route := range app.GetRoutes() {
			if route.Name != "" {
				cache[route.Name] = route.Path
			}
		}

		routeCacheMu.Lock()
		routeCache = cache
		routeCacheMu.Unlock()
	})
}

// GetRoute returns the route pattern for the given route name
func GetRoute(name string) string {
	initRouteCache()

	routeCacheMu.RLock()
	defer routeCacheMu.RUnlock()
	return routeCache[name]
}

// BuildURL builds a URL for the given route name and parameters.
// Parameter values are path escaped.
func BuildURL(routeName string, params map[string]string, queryParams url.Values) string {
	route := GetRoute(routeName)
	if route == "" {
		return ""
	}

	segments := strings.Split(route, "/")
	for i, segment := range segments {
		if !strings.HasPrefix(segment, ":") {
			continue
		}
		if value, ok := params[strings.TrimPrefix(segment, ":")]; ok {
			segments[i] = url.PathEscape(value)
		}
	}
	route = strings.Join(segments, "/")

	if len(queryParams) > 0 {
		route = fmt.Sprintf("%s?%s", route, queryParams.Encode())
	}

	return route
}

// HealthCheckURL returns the URL for the health check endpoint
func HealthCheckURL() string {
	return BuildURL(HealthCheck, nil, nil)
}

// SubmitJobURL returns the URL for submitting a job of the given kind
func SubmitJobURL(kind jobs.Kind) string {
	return BuildURL(SubmitJob, map[string]string{ParamCollection: kind.Collection}, nil)
}

// GetJobURL returns the status URL of a job
func GetJobURL(kind jobs.Kind, id jobs.JobID) string {
	return BuildURL(GetJob, map[string]string{
		ParamCollection: kind.Collection,
		ParamID:         id.String(),
	}, nil)
}

// GetJobResultURL returns the result URL of a job
func GetJobResultURL(kind jobs.Kind, id jobs.JobID) string {
	return BuildURL(GetJobResult, map[string]string{
		ParamCollection: kind.Collection,
		ParamID:         id.String(),
		ParamResult:     kind.ResultPath,
	}, nil)
}
