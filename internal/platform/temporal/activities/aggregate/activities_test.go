package aggregate

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/Apurer/go-cqrs-platform/internal/engine/enginetest"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/commandloop"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
)

func newEnv(t *testing.T) (*testsuite.TestActivityEnvironment, *enginetest.Fixture) {
	t.Helper()
	fixture, err := enginetest.NewFixture()
	require.NoError(t, err)
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	NewActivities(fixture.Engine).Register(env)
	return env, fixture
}

func TestDecideThenApply(t *testing.T) {
	env, fixture := newEnv(t)
	cmd := enginetest.Increment("c1", 2)
	cmd.Metadata.RequestID = "req-1"

	value, err := env.ExecuteActivity(DecideActivityName, DecideInput{Ref: enginetest.Ref, Command: cmd})
	require.NoError(t, err)
	var decision commandloop.Decision
	require.NoError(t, value.Get(&decision))
	require.Equal(t, commandloop.StatusSuccess, decision.Status)
	require.Len(t, decision.Events, 1)
	require.Equal(t, "req-1", decision.Events[0].Metadata.RequestID)

	_, err = env.ExecuteActivity(ApplyActivityName, ApplyInput{Ref: enginetest.Ref, Events: decision.Events})
	require.NoError(t, err)
	_, err = env.ExecuteActivity(RouteActivityName, RouteInput{Event: decision.Events[0]})
	require.NoError(t, err)

	require.Equal(t, []string{decision.Events[0].ID}, fixture.Recorder.Routed())
}

func TestDecideRejectionIsAResult(t *testing.T) {
	env, _ := newEnv(t)

	value, err := env.ExecuteActivity(DecideActivityName, DecideInput{Ref: enginetest.Ref, Command: enginetest.Increment("c1", -1)})
	require.NoError(t, err)
	var decision commandloop.Decision
	require.NoError(t, value.Get(&decision))
	require.Equal(t, commandloop.StatusFail, decision.Status)
	require.Equal(t, enginetest.RejectCode, decision.Error.Code)
}

func TestConfigurationErrorsAreNotRetried(t *testing.T) {
	env, _ := newEnv(t)

	_, err := env.ExecuteActivity(DecideActivityName, DecideInput{
		Ref:     enginetest.Ref,
		Command: message.BuildCommand("c1", "t1", "test.unknown", nil),
	})
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	require.True(t, appErr.NonRetryable())
	require.Equal(t, ConfigurationErrorType, appErr.Type())
}

func TestEmitSpan(t *testing.T) {
	env, _ := newEnv(t)

	_, err := env.ExecuteActivity(EmitSpanActivityName, EmitSpanInput{Ref: enginetest.Ref, Signal: message.ObservabilitySignal{Span: "ui.open"}})
	require.NoError(t, err)
}
