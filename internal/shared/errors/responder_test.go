package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var errGone = errors.New("gone")

func respond(t *testing.T, fn func(c *gin.Context)) (*httptest.ResponseRecorder, ProblemDetail) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/things/1", nil)
	fn(c)

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestRespondError_UsesMappers(t *testing.T) {
	r := NewResponder(func(err error) (ProblemDetail, bool) {
		if errors.Is(err, errGone) {
			return ErrNotFound.WithDetail("gone"), true
		}
		return ProblemDetail{}, false
	})

	rec, body := respond(t, func(c *gin.Context) { r.RespondError(c, errGone) })
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	require.Equal(t, "/v1/things/1", body.Instance)

	rec, body = respond(t, func(c *gin.Context) { r.RespondError(c, errors.New("boom")) })
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, TypeInternal, body.Type)

	rec, _ = respond(t, func(c *gin.Context) { r.RespondError(c, ErrForbidden) })
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNotFoundProblemCarriesResource(t *testing.T) {
	rec, body := respond(t, func(c *gin.Context) { NewResponder().NotFound(c, "pet", "p1") })
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "pet", body.Extensions["resourceType"])
	require.Equal(t, "p1", body.Extensions["identifier"])
}

func TestForStatusAndExtensionsDoNotAlias(t *testing.T) {
	require.Equal(t, TypeUnavailable, ForStatus(http.StatusServiceUnavailable).Type)
	require.Equal(t, TypeInternal, ForStatus(http.StatusTeapot).Type)

	base := ErrValidation.WithExtension("fields", map[string]string{"type": "required"})
	other := base.WithExtension("hint", "x")
	require.Len(t, base.Extensions, 1)
	require.Len(t, other.Extensions, 2)
}
