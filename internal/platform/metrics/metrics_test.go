package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsRequestsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewHTTP()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	require.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/items/:id", "204")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestCommandDispatched(t *testing.T) {
	m := NewHTTP()
	m.CommandDispatched("pets.register", "accepted")
	require.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("pets.register", "accepted")))
}
