package worktree

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Git runs git commands against one working copy via "git -C <dir>".
type Git struct {
	Dir string
}

// NewGit returns a Git targeting dir.
func NewGit(dir string) *Git {
	return &Git{Dir: dir}
}

// Run executes git with args and returns stdout with surrounding whitespace
// trimmed. Stderr is included in the error on failure.
func (g *Git) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", g.Dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), g.Dir, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
