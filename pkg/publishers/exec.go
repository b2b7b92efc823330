package publishers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandRunner runs an external tool and returns its combined output.
// A non-zero exit is reported as a *CommandError.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// CommandError describes a failed external process.
type CommandError struct {
	Command  string
	Dir      string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%q exited with code %d", e.Command, e.ExitCode)
	if e.ExitCode < 0 {
		msg = fmt.Sprintf("%q could not run", e.Command)
	}
	if e.Output != "" {
		msg += ": " + e.Output
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args in dir.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return out.Bytes(), &CommandError{
			Command:  commandLine(name, args),
			Dir:      dir,
			ExitCode: code,
			Output:   trimOutput(out.Bytes()),
			Err:      err,
		}
	}
	return out.Bytes(), nil
}

func commandLine(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

// trimOutput keeps the head of a failed command's output for error messages.
func trimOutput(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return strings.TrimSpace(string(b))
}

// relativeTo rewrites path, which is relative to the process working
// directory, so it names the same file from dir. Paths inside dir come back
// relative to it; anything else comes back absolute.
func relativeTo(dir, path string) string {
	if dir == "" || path == "" {
		return path
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return absPath
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return absPath
	}
	return rel
}
