package errors

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// ContentTypeProblemJSON is the media type for problem responses.
const ContentTypeProblemJSON = "application/problem+json"

// ErrorMapper turns a known error into a problem. ok is false for errors the
// mapper does not recognise.
type ErrorMapper func(err error) (problem ProblemDetail, ok bool)

// Responder writes problem responses, consulting its mappers for plain errors.
type Responder struct {
	mappers []ErrorMapper
}

// NewResponder creates a responder with the given error mappers.
func NewResponder(mappers ...ErrorMapper) *Responder {
	return &Responder{mappers: mappers}
}

// Respond sends problem, filling Instance with the request path.
func (r *Responder) Respond(c *gin.Context, problem ProblemDetail) {
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.AbortWithStatusJSON(problem.Status, problem)
}

// RespondError renders err. Problems pass through, mapped errors use their
// mapper, anything else is a 500.
func (r *Responder) RespondError(c *gin.Context, err error) {
	var problem ProblemDetail
	if errors.As(err, &problem) {
		r.Respond(c, problem)
		return
	}
	for _, mapper := range r.mappers {
		if p, ok := mapper(err); ok {
			r.Respond(c, p)
			return
		}
	}
	r.Respond(c, ErrInternal.WithDetail(err.Error()))
}

// NotFound sends a 404 for the named resource.
func (r *Responder) NotFound(c *gin.Context, resourceType string, identifier any) {
	r.Respond(c, NewNotFoundProblem(resourceType, identifier))
}
