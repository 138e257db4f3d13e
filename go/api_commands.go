package platformserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Apurer/go-cqrs-platform/internal/dispatch"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/registry"
	"github.com/Apurer/go-cqrs-platform/internal/platform/requestctx"
	apierrors "github.com/Apurer/go-cqrs-platform/internal/shared/errors"
)

// EventStreamer reads an aggregate's upcast event stream.
type EventStreamer interface {
	Stream(ctx context.Context, ref message.AggregateRef, afterVersion int64) ([]message.Event, error)
}

// CommandCounter records dispatch outcomes.
type CommandCounter interface {
	CommandDispatched(commandType, outcome string)
}

// CommandRequest is the body of POST /v1/tenants/:tenantId/commands.
type CommandRequest struct {
	ID          string          `json:"id,omitempty"`
	Type        string          `json:"type" binding:"required"`
	AggregateID string          `json:"aggregateId" binding:"required"`
	Payload     message.Payload `json:"payload"`
}

// SpanRequest is the body of the observability signal route.
type SpanRequest struct {
	Span string         `json:"span" binding:"required"`
	Data map[string]any `json:"data,omitempty"`
}

// CommandAPI accepts commands and observability signals for aggregates.
type CommandAPI struct {
	registry   *registry.Registry
	dispatcher dispatch.Dispatcher
	events     EventStreamer
	counter    CommandCounter
}

// NewCommandAPI creates a CommandAPI. counter may be nil.
func NewCommandAPI(reg *registry.Registry, d dispatch.Dispatcher, events EventStreamer, counter CommandCounter) CommandAPI {
	return CommandAPI{registry: reg, dispatcher: d, events: events, counter: counter}
}

// Post /v1/tenants/:tenantId/commands
// Queue a command for its aggregate; answers 202 with the workflow id.
func (api *CommandAPI) DispatchCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	ct, ok := api.registry.CommandType(req.Type)
	if !ok {
		api.count("unknown", "rejected")
		respondProblem(c, apierrors.ErrValidation.
			WithDetail(fmt.Sprintf("unknown command type %q", req.Type)).
			WithExtension("type", req.Type))
		return
	}
	if !api.authorized(c, ct.Domain) {
		api.count(req.Type, "forbidden")
		respondError(c, http.StatusForbidden, fmt.Errorf("caller lacks a %s role", ct.Domain))
		return
	}

	tenantID := c.Param("tenantId")
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	ctx := c.Request.Context()
	cmd := message.BuildCommand(id, tenantID, req.Type, req.Payload, message.Metadata{
		RequestID: requestctx.RequestIDFromContext(ctx),
		UserID:    requestctx.UserIDFromContext(ctx),
		Source:    "api",
	})
	ref := message.AggregateRef{TenantID: tenantID, Type: ct.AggregateType, ID: req.AggregateID}

	receipt, err := api.dispatcher.Dispatch(ctx, ref, cmd)
	if err != nil {
		api.count(req.Type, "error")
		problems.RespondError(c, err)
		return
	}
	api.count(req.Type, "accepted")
	c.JSON(http.StatusAccepted, receipt)
}

// Post /v1/tenants/:tenantId/aggregates/:type/:id/spans
// Record a client-side span against the aggregate's workflow.
func (api *CommandAPI) EmitSpan(c *gin.Context) {
	var req SpanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	ref, ok := api.aggregateRef(c)
	if !ok {
		return
	}
	signal := message.ObservabilitySignal{Span: req.Span, Data: req.Data}
	if err := api.dispatcher.Observe(c.Request.Context(), ref, signal); err != nil {
		problems.RespondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// Get /v1/tenants/:tenantId/aggregates/:type/:id/events
// List the aggregate's events after an optional version.
func (api *CommandAPI) ListEvents(c *gin.Context) {
	ref, ok := api.aggregateRef(c)
	if !ok {
		return
	}
	var after int64
	if raw := c.Query("after"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			respondError(c, http.StatusBadRequest, errors.New("after must be a non-negative integer"))
			return
		}
		after = v
	}
	events, err := api.events.Stream(c.Request.Context(), ref, after)
	if err != nil {
		problems.RespondError(c, err)
		return
	}
	if events == nil {
		events = []message.Event{}
	}
	c.JSON(http.StatusOK, events)
}

// Get /v1/command-types
// List the registered command types.
func (api *CommandAPI) ListCommandTypes(c *gin.Context) {
	types := api.registry.AllCommandTypes()
	out := make([]gin.H, 0, len(types))
	for _, name := range registry.SortedNames(types) {
		ct := types[name]
		out = append(out, gin.H{"type": ct.Name, "domain": ct.Domain, "aggregateType": ct.AggregateType, "description": ct.Description})
	}
	c.JSON(http.StatusOK, out)
}

func (api *CommandAPI) aggregateRef(c *gin.Context) (message.AggregateRef, bool) {
	ref := message.AggregateRef{TenantID: c.Param("tenantId"), Type: c.Param("type"), ID: c.Param("id")}
	if _, ok := api.registry.Aggregate(ref.Type); !ok {
		problems.NotFound(c, "aggregate type", ref.Type)
		return ref, false
	}
	return ref, true
}

// authorized passes when the domain declares no roles or the caller holds one.
func (api *CommandAPI) authorized(c *gin.Context, domain string) bool {
	allowed, ok := api.registry.Roles(domain)
	if !ok || len(allowed) == 0 {
		return true
	}
	held := callerRoles(c)
	for _, role := range allowed {
		if _, ok := held[role]; ok {
			return true
		}
	}
	return false
}

func (api *CommandAPI) count(commandType, outcome string) {
	if api.counter != nil {
		api.counter.CommandDispatched(commandType, outcome)
	}
}
