package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// RunnerConfig configures the task-runner subprocess tool.
type RunnerConfig struct {
	// Command is the task-runner binary to invoke.
	Command string

	// Dir is the working directory for the subprocess. Empty means inherit.
	Dir string

	// Timeout is the wall-clock limit for one invocation. Zero means 30s.
	Timeout time.Duration
}

const defaultRunnerTimeout = 30 * time.Second

// shellMetaChars are rejected in task arguments. The runner is invoked without
// a shell, but its own recipes may re-expand arguments.
const shellMetaChars = "&|;<>`$(){}!\\\"'\n"

// RunnerTool invokes the external task-runner binary with a bounded timeout.
type RunnerTool struct {
	cfg RunnerConfig
}

// NewRunnerTool creates the task-runner tool.
func NewRunnerTool(cfg RunnerConfig) *RunnerTool {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRunnerTimeout
	}
	return &RunnerTool{cfg: cfg}
}

// Available reports whether a runner command is configured.
func (t *RunnerTool) Available() bool { return t.cfg.Command != "" }

// Definition returns the tool definition for registration.
func (t *RunnerTool) Definition() Definition {
	return NewDefinition("run_task",
		fmt.Sprintf("Run a %s task and return its output. Fails if the task does not finish within %s.", t.cfg.Command, t.cfg.Timeout),
		ObjectSchema(map[string]Property{
			"task": {Type: "string", Description: "Task name to run"},
			"args": {Type: "array", Description: "Additional arguments for the task"},
		}, "task"),
		t.run)
}

// sanitizeArg rejects strings containing shell metacharacters.
func sanitizeArg(s string) *Failure {
	if i := strings.IndexAny(s, shellMetaChars); i >= 0 {
		return Failf(KindInvalidArguments, "argument contains forbidden character %q", s[i])
	}
	return nil
}

func (t *RunnerTool) run(ctx context.Context, args map[string]any) (any, error) {
	if !t.Available() {
		return nil, Failf(KindExecutionError, "no task runner configured")
	}

	task, _ := args["task"].(string)
	if f := sanitizeArg(task); f != nil {
		return nil, f
	}

	cmdArgs := []string{task}
	if extra, ok := args["args"].([]any); ok {
		for _, a := range extra {
			s, ok := a.(string)
			if !ok {
				return nil, Failf(KindInvalidArguments, "argument args: expected array of strings")
			}
			if f := sanitizeArg(s); f != nil {
				return nil, f
			}
			cmdArgs = append(cmdArgs, s)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, t.cfg.Command, cmdArgs...)
	cmd.Dir = t.cfg.Dir
	// Make sure a timed-out subprocess is killed, not abandoned: if SIGKILL
	// does not reap it promptly, Wait gives up after WaitDelay.
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, Failf(KindTimeout, "task %s exceeded %s", task, t.cfg.Timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, Failf(KindExecutionError, "task %s exited with code %d: %s",
				task, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, Failf(KindExecutionError, "task %s: %v", task, err)
	}

	return map[string]any{
		"task":   task,
		"stdout": stdout.String(),
		"stderr": stderr.String(),
	}, nil
}
