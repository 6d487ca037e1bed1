package audit

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ito-project/ito/pkg/fsutil"
	"github.com/ito-project/ito/pkg/logging"
	"github.com/ito-project/ito/pkg/model"
	"github.com/ito-project/ito/pkg/pathutil"
	"github.com/ito-project/ito/pkg/uuidutil"
)

// SessionFileName holds the session id of the current working copy.
const SessionFileName = ".session"

// HarnessSessionEnv lists the variables checked, in order, for the session
// id of an agent harness driving the CLI.
var HarnessSessionEnv = []string{
	"ITO_HARNESS_SESSION_ID",
	"CLAUDE_SESSION_ID",
	"OPENCODE_SESSION_ID",
	"CODEX_SESSION_ID",
}

// GitRunner runs git and returns trimmed stdout.
type GitRunner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ResolveContext gathers event provenance once per invocation. Every field
// except the session id is best effort and left empty on failure.
func ResolveContext(ctx context.Context, itoDir string, git GitRunner) model.EventContext {
	ec := model.EventContext{
		SessionID:        ResolveSessionID(itoDir),
		HarnessSessionID: ResolveHarnessSessionID(),
	}
	if git == nil {
		return ec
	}
	ec.Branch = gitOutput(ctx, git, "symbolic-ref", "--short", "HEAD")
	ec.Commit = gitOutput(ctx, git, "rev-parse", "--short=8", "HEAD")
	ec.Worktree = worktreeName(ctx, git)
	return ec
}

// ResolveSessionID returns the persisted session id under itoDir, creating
// one when absent. Persisting is best effort; the id is returned either way.
func ResolveSessionID(itoDir string) string {
	path := filepath.Join(filepath.Dir(LogPath(itoDir)), SessionFileName)

	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}

	id := uuidutil.NewV4()
	err := fsutil.MkdirDurable(filepath.Dir(path), 0755)
	if err == nil {
		err = fsutil.WriteFileBytes(path, []byte(id), 0644)
	}
	if err != nil {
		logging.Debug("session id not persisted", map[string]any{"path": path, "error": err.Error()})
	}
	return id
}

// ResolveHarnessSessionID returns the first non-empty HarnessSessionEnv value.
func ResolveHarnessSessionID() string {
	for _, name := range HarnessSessionEnv {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ResolveIdentity returns the "by" identity of the caller: "@" followed by
// the git user name, or $USER, lowercased with spaces replaced by '-'.
func ResolveIdentity(ctx context.Context, git GitRunner) string {
	name := ""
	if git != nil {
		name = gitOutput(ctx, git, "config", "user.name")
	}
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		name = "unknown"
	}
	return "@" + pathutil.Slug(name)
}

func gitOutput(ctx context.Context, git GitRunner, args ...string) string {
	out, err := git.Run(ctx, args...)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// worktreeName is the base name of the working copy when it is a linked
// worktree, detected by git-dir differing from the common dir.
func worktreeName(ctx context.Context, git GitRunner) string {
	gitDir := gitOutput(ctx, git, "rev-parse", "--absolute-git-dir")
	commonDir := gitOutput(ctx, git, "rev-parse", "--path-format=absolute", "--git-common-dir")
	if gitDir == "" || commonDir == "" {
		return ""
	}
	if filepath.Clean(gitDir) == filepath.Clean(commonDir) {
		return ""
	}
	top := gitOutput(ctx, git, "rev-parse", "--show-toplevel")
	if top == "" {
		return ""
	}
	return filepath.Base(top)
}
