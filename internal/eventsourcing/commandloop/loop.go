// Package commandloop implements the per-aggregate command processing state
// machine independently of the runtime that hosts it.
//
// A loop owns an ordered queue of pending commands and the id of the last
// command it processed. Commands are drained one at a time: dedup against the
// previous id, decide, then apply, project and route the resulting events
// before the next command is dequeued. With an empty queue the loop parks on a
// timed wait and exits when nothing arrives.
//
// Inbox and Steps implementations capture whatever context their runtime
// needs (a workflow.Context under Temporal, a context.Context in-process), so
// the loop itself never blocks on anything but those ports.
package commandloop

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.temporal.io/sdk/log"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/domainerr"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
)

// DefaultIdleTimeout is how long an empty loop waits for another command.
const DefaultIdleTimeout = 1000 * time.Millisecond

// Status is the outcome of a decision or of a whole run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// Decision is what the decision step returns for one command.
type Decision struct {
	Events []message.Event               `json:"events"`
	Status Status                        `json:"status"`
	Error  *domainerr.BusinessRuleError `json:"error,omitempty"`
}

// Succeeded builds a successful decision.
func Succeeded(events ...message.Event) Decision {
	return Decision{Events: events, Status: StatusSuccess}
}

// Failed builds a terminal decision.
func Failed(err *domainerr.BusinessRuleError) Decision {
	return Decision{Status: StatusFail, Error: err}
}

// Result is the terminal value of a run.
type Result struct {
	Status Status                        `json:"status"`
	Error  *domainerr.BusinessRuleError `json:"error,omitempty"`
}

// State is the durable memory of a loop: the pending queue and the id of the
// most recently processed command.
type State struct {
	Pending         []message.Command `json:"pending,omitempty"`
	LastProcessedID string            `json:"lastProcessedId,omitempty"`
}

// ExitReason says why Run returned.
type ExitReason string

const (
	// ExitIdle means the timed wait elapsed with an empty queue.
	ExitIdle ExitReason = "idle"
	// ExitFailed means a decision reported failure.
	ExitFailed ExitReason = "failed"
	// ExitContinue means the run hit its command budget and the host should
	// start a fresh run from State.
	ExitContinue ExitReason = "continue"
)

// Exit is returned by Run.
type Exit struct {
	Reason    ExitReason
	Result    Result
	State     State
	Processed int
}

// Inbox delivers commands signalled to the loop.
type Inbox interface {
	// TryReceive returns a buffered command without blocking.
	TryReceive() (message.Command, bool)
	// Receive waits up to timeout for a command; false means the wait elapsed.
	Receive(timeout time.Duration) (message.Command, bool)
}

// Steps are the external effects of processing a command.
type Steps interface {
	Decide(cmd message.Command) (Decision, error)
	Apply(events []message.Event) error
	Project(events []message.Event) error
	Route(evt message.Event) error
}

// ErrNoInbox and ErrNoSteps report an unconfigured loop.
var (
	ErrNoInbox = errors.New("command loop has no inbox")
	ErrNoSteps = errors.New("command loop has no steps")
)

// Loop drives one aggregate's command queue.
type Loop struct {
	Inbox  Inbox
	Steps  Steps
	Logger log.Logger
	// IdleTimeout defaults to DefaultIdleTimeout when zero.
	IdleTimeout time.Duration
	// MaxCommands bounds the commands processed in one run; zero means unbounded.
	MaxCommands int
	// OnChange, when set, observes the queue after it is drained and after
	// every processed command.
	OnChange func(State)
}

// Run processes commands starting from state until the loop idles out, a
// decision fails, or the command budget is spent. Errors from the steps are
// infrastructure failures and are returned as-is.
func (l *Loop) Run(state State) (Exit, error) {
	if l.Inbox == nil {
		return Exit{}, ErrNoInbox
	}
	if l.Steps == nil {
		return Exit{}, ErrNoSteps
	}
	logger := l.Logger
	if logger == nil {
		logger = log.NewStructuredLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	}
	idle := l.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}

	pending := append([]message.Command(nil), state.Pending...)
	last := state.LastProcessedID
	processed := 0

	snapshot := func() State {
		return State{Pending: append([]message.Command(nil), pending...), LastProcessedID: last}
	}

	notify := func() {
		if l.OnChange != nil {
			l.OnChange(snapshot())
		}
	}

	for {
		pending = l.drain(pending)
		notify()

		if l.MaxCommands > 0 && processed >= l.MaxCommands {
			logger.Info("command budget spent, continuing", "processed", processed, "pending", len(pending))
			return Exit{Reason: ExitContinue, Result: Result{Status: StatusSuccess}, State: snapshot(), Processed: processed}, nil
		}

		if len(pending) == 0 {
			cmd, ok := l.Inbox.Receive(idle)
			if !ok {
				logger.Debug("command queue idle, exiting", "processed", processed, "lastProcessedId", last)
				return Exit{Reason: ExitIdle, Result: Result{Status: StatusSuccess}, State: snapshot(), Processed: processed}, nil
			}
			pending = append(pending, cmd)
			continue
		}

		cmd := pending[0]
		pending = pending[1:]

		if cmd.ID == last {
			logger.Debug("skipping redelivered command", "commandId", cmd.ID, "commandType", cmd.Type)
			continue
		}

		decision, err := l.Steps.Decide(cmd)
		if err != nil {
			return Exit{State: snapshot(), Processed: processed}, fmt.Errorf("decide %s %s: %w", cmd.Type, cmd.ID, err)
		}
		if decision.Status == StatusFail {
			logger.Warn("command rejected, terminating loop", "commandId", cmd.ID, "commandType", cmd.Type, "error", decision.Error.Error())
			return Exit{
				Reason:    ExitFailed,
				Result:    Result{Status: StatusFail, Error: decision.Error},
				State:     snapshot(),
				Processed: processed,
			}, nil
		}

		if len(decision.Events) > 0 {
			if err := l.Steps.Apply(decision.Events); err != nil {
				return Exit{State: snapshot(), Processed: processed}, fmt.Errorf("apply events for %s: %w", cmd.ID, err)
			}
			if err := l.Steps.Project(decision.Events); err != nil {
				return Exit{State: snapshot(), Processed: processed}, fmt.Errorf("project events for %s: %w", cmd.ID, err)
			}
			for _, evt := range decision.Events {
				if err := l.Steps.Route(evt); err != nil {
					return Exit{State: snapshot(), Processed: processed}, fmt.Errorf("route event %s for %s: %w", evt.ID, cmd.ID, err)
				}
			}
		}

		last = cmd.ID
		processed++
		notify()
		logger.Debug("command processed", "commandId", cmd.ID, "commandType", cmd.Type, "events", len(decision.Events))
	}
}

func (l *Loop) drain(pending []message.Command) []message.Command {
	for {
		cmd, ok := l.Inbox.TryReceive()
		if !ok {
			return pending
		}
		pending = append(pending, cmd)
	}
}
