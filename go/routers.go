package platformserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions groups the handlers behind the routes.
type ApiHandleFunctions struct {
	CommandAPI CommandAPI
	QueryAPI   QueryAPI
	Metrics    http.Handler
}

// NewRouter returns a gin engine with every route registered. Middlewares run
// in the order given, before the request id middleware.
func NewRouter(handleFunctions ApiHandleFunctions, middlewares ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewares...)
	router.Use(RequestID())
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		router.Handle(route.Method, route.Pattern, route.HandlerFunc)
	}
	return router
}

// DefaultHandleFunc answers routes whose handler is not wired.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	var metrics gin.HandlerFunc
	if handleFunctions.Metrics != nil {
		metrics = gin.WrapH(handleFunctions.Metrics)
	}
	return []Route{
		{"Healthz", http.MethodGet, "/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }},
		{"Metrics", http.MethodGet, "/metrics", metrics},
		{"DispatchCommand", http.MethodPost, "/v1/tenants/:tenantId/commands", handleFunctions.CommandAPI.DispatchCommand},
		{"EmitSpan", http.MethodPost, "/v1/tenants/:tenantId/aggregates/:type/:id/spans", handleFunctions.CommandAPI.EmitSpan},
		{"ListEvents", http.MethodGet, "/v1/tenants/:tenantId/aggregates/:type/:id/events", handleFunctions.CommandAPI.ListEvents},
		{"ListCommandTypes", http.MethodGet, "/v1/command-types", handleFunctions.CommandAPI.ListCommandTypes},
		{"GetPet", http.MethodGet, "/v1/tenants/:tenantId/pets/:id", handleFunctions.QueryAPI.GetPet},
		{"ListPets", http.MethodGet, "/v1/tenants/:tenantId/pets", handleFunctions.QueryAPI.ListPets},
		{"GetOrder", http.MethodGet, "/v1/tenants/:tenantId/orders/:id", handleFunctions.QueryAPI.GetOrder},
		{"GetInventory", http.MethodGet, "/v1/tenants/:tenantId/store/inventory", handleFunctions.QueryAPI.GetInventory},
	}
}
