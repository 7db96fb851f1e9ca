package hooks

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Command is an argv list run from the project root.
type Command []string

// CommandError reports a failing hook command.
type CommandError struct {
	Hook    string
	Command Command
	Err     error
	Stderr  string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("hook %s: %s failed: %v", e.Hook, strings.Join(e.Command, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (c Command) empty() bool {
	return len(c) == 0 || c[0] == ""
}

// run executes the command with stdin and returns its stdout.
func (c Command) run(ctx context.Context, hook, dir string, stdin []byte, args []string, env ...string) ([]byte, error) {
	argv := append(append([]string{}, c[1:]...), args...)
	cmd := exec.CommandContext(ctx, c[0], argv...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &CommandError{
			Hook:    hook,
			Command: c,
			Err:     err,
			Stderr:  strings.TrimSpace(stderr.String()),
		}
	}
	return stdout.Bytes(), nil
}
