package tool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerAvailable(t *testing.T) {
	assert.False(t, NewRunnerTool(RunnerConfig{}).Available())
	assert.True(t, NewRunnerTool(RunnerConfig{Command: "make"}).Available())
}

func TestRunnerSuccess(t *testing.T) {
	runner := NewRunnerTool(RunnerConfig{Command: "echo"})

	out, err := runner.run(context.Background(), map[string]any{
		"task": "hello",
		"args": []any{"world"},
	})
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, "hello", result["task"])
	assert.Equal(t, "hello world\n", result["stdout"])
	assert.Empty(t, result["stderr"])
}

func TestRunnerTimeout(t *testing.T) {
	runner := NewRunnerTool(RunnerConfig{Command: "sleep", Timeout: 100 * time.Millisecond})

	start := time.Now()
	_, err := runner.run(context.Background(), map[string]any{"task": "5"})
	elapsed := time.Since(start)

	var fail *Failure
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, KindTimeout, fail.Kind)
	assert.Less(t, elapsed, 3*time.Second, "timed-out subprocess was not reaped")
}

func TestRunnerNonZeroExit(t *testing.T) {
	runner := NewRunnerTool(RunnerConfig{Command: "false"})

	_, err := runner.run(context.Background(), map[string]any{"task": "anything"})
	var fail *Failure
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, KindExecutionError, fail.Kind)
}

func TestRunnerMissingCommand(t *testing.T) {
	runner := NewRunnerTool(RunnerConfig{Command: "definitely-not-a-binary-7f3a"})

	_, err := runner.run(context.Background(), map[string]any{"task": "build"})
	var fail *Failure
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, KindExecutionError, fail.Kind)
}

func TestRunnerRejectsShellMetacharacters(t *testing.T) {
	runner := NewRunnerTool(RunnerConfig{Command: "echo"})

	for _, task := range []string{
		"build;rm -rf /",
		"build|cat",
		"build$(whoami)",
		"build`id`",
		"build && clean",
	} {
		_, err := runner.run(context.Background(), map[string]any{"task": task})
		var fail *Failure
		require.ErrorAs(t, err, &fail, "task %q", task)
		assert.Equal(t, KindInvalidArguments, fail.Kind, "task %q", task)
	}

	_, err := runner.run(context.Background(), map[string]any{
		"task": "build",
		"args": []any{"--out", "x>y"},
	})
	var fail *Failure
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, KindInvalidArguments, fail.Kind)
}

func TestRunnerRejectsNonStringArgs(t *testing.T) {
	runner := NewRunnerTool(RunnerConfig{Command: "echo"})

	_, err := runner.run(context.Background(), map[string]any{
		"task": "build",
		"args": []any{"ok", 12},
	})
	var fail *Failure
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, KindInvalidArguments, fail.Kind)
}

func TestRunnerDefinitionRegisters(t *testing.T) {
	reg := NewRegistry(silentLog())
	runner := NewRunnerTool(RunnerConfig{Command: "make"})
	require.NoError(t, reg.Register(runner.Definition()))

	def, ok := reg.Get("run_task")
	require.True(t, ok)
	assert.Contains(t, def.InputSchema.Required, "task")
}
