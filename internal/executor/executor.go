package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ExitNotExecuted marks a dry-run result: no process was spawned, so
// there is no real exit status to report.
const ExitNotExecuted = -1

// ErrInterrupted distinguishes a deliberate interrupt from a tool
// failure. Interrupts abort the session instead of burning a retry.
var ErrInterrupted = errors.New("command interrupted")

// Result captures one execution round: the command, its streams and
// exit status. DryRun results carry ExitNotExecuted and empty streams.
type Result struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	DryRun   bool
}

func (r Result) Success() bool {
	return !r.DryRun && r.ExitCode == 0
}

// Run executes the command through a shell so pipes, globs, and loop
// constructs are interpreted as written. Side effects on the working
// directory are inherent to the tool's purpose; nothing is sandboxed
// beyond the dry-run flag.
func Run(ctx context.Context, command string, dryRun bool) (Result, error) {
	result := Result{Command: command, DryRun: dryRun}
	if dryRun {
		result.ExitCode = ExitNotExecuted
		return result, nil
	}

	shell, args := shellInvocation(command)
	cmd := exec.CommandContext(ctx, shell, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if ctx.Err() != nil {
		result.ExitCode = ExitNotExecuted
		return result, ErrInterrupted
	}

	switch err := runErr.(type) {
	case nil:
		result.ExitCode = 0
	case *exec.ExitError:
		result.ExitCode = err.ExitCode()
	default:
		// The shell itself could not be spawned; present it like a
		// command-not-found failure so the repair loop can still react.
		result.ExitCode = 127
		if result.Stderr == "" {
			result.Stderr = runErr.Error()
		}
	}
	return result, nil
}

func shellInvocation(command string) (string, []string) {
	if runtime.GOOS == "windows" {
		comspec := strings.TrimSpace(os.Getenv("COMSPEC"))
		if comspec == "" {
			comspec = "cmd"
		}
		return comspec, []string{"/C", command}
	}

	shell := strings.TrimSpace(os.Getenv("SHELL"))
	if shell != "" {
		if filepath.IsAbs(shell) {
			if _, err := os.Stat(shell); err == nil {
				return shell, []string{"-c", command}
			}
		} else if resolved, err := exec.LookPath(shell); err == nil {
			return resolved, []string{"-c", command}
		}
	}
	return "sh", []string{"-c", command}
}
