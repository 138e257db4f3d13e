package platformserver

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/go-cqrs-platform/internal/dispatch"
	"github.com/Apurer/go-cqrs-platform/internal/engine"
	apierrors "github.com/Apurer/go-cqrs-platform/internal/shared/errors"
)

var problems = apierrors.NewResponder(dispatchProblem)

func respondProblem(c *gin.Context, problem apierrors.ProblemDetail) {
	problems.Respond(c, problem)
}

// respondError answers with the problem template for status.
func respondError(c *gin.Context, status int, err error) {
	if err == nil {
		return
	}
	respondProblem(c, apierrors.ForStatus(status).WithDetail(err.Error()))
}

func unauthorized(err error) apierrors.ProblemDetail {
	return apierrors.ErrUnauthorized.WithDetail(err.Error())
}

// dispatchProblem classifies dispatcher and engine failures.
func dispatchProblem(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, dispatch.ErrInvalidReference),
		errors.Is(err, dispatch.ErrInvalidCommand),
		errors.Is(err, dispatch.ErrTenantMismatch),
		engine.IsConfigurationError(err):
		return apierrors.ErrBadRequest.WithDetail(err.Error()), true
	case errors.Is(err, dispatch.ErrClosed):
		return apierrors.ErrUnavailable.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}
