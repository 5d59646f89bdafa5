package enrich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	ErrToolNotFound   = errors.New("metadata tool not found")
	ErrToolInvocation = errors.New("metadata tool failed")
)

// Runner runs an external program and returns its standard output.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs programs found on PATH.
type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	binPath, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrToolNotFound, name, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("%w: %s: %w", ErrToolInvocation, name, err)
		}
		return "", fmt.Errorf("%w: %s: %w: %s", ErrToolInvocation, name, err, msg)
	}

	return stdout.String(), nil
}
