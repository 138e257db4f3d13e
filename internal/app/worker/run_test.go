package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/Apurer/go-cqrs-platform/internal/engine/enginetest"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/commandloop"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	aggworkflow "github.com/Apurer/go-cqrs-platform/internal/platform/temporal/workflows/aggregate"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, aggworkflow.DefaultTaskQueue, cfg.Temporal.TaskQueue)
	require.Equal(t, 500, cfg.Settings().Loop.CommandsPerRun)
}

func TestRegisterServesCommandLoop(t *testing.T) {
	fixture, err := enginetest.NewFixture()
	require.NoError(t, err)

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	Register(env, fixture.Engine)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(aggworkflow.CommandSignal, enginetest.Increment("cmd-1", 2))
	}, 0)
	env.ExecuteWorkflow(aggworkflow.WorkflowName, aggworkflow.Input{Ref: enginetest.Ref})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var result commandloop.Result
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, commandloop.StatusSuccess, result.Status)

	events, err := fixture.Events.Load(context.Background(), enginetest.Ref, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, message.Payload{"by": 2.0}, events[0].Payload)
}
