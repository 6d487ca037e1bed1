// Package worktree enumerates the git worktrees of a repository and locates
// the audit log of each.
package worktree

import (
	"context"
	"os"
	"strings"

	"github.com/ito-project/ito/pkg/model"
)

// Lister enumerates the worktrees of a repository.
type Lister interface {
	List(ctx context.Context) ([]model.WorktreeInfo, error)
}

// GitLister lists worktrees with `git worktree list --porcelain`.
type GitLister struct {
	Git *Git
}

// List implements Lister.
func (l *GitLister) List(ctx context.Context) ([]model.WorktreeInfo, error) {
	out, err := l.Git.Run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return ParsePorcelain(out), nil
}

// ParsePorcelain parses `git worktree list --porcelain` output. Bare entries
// are skipped, branches lose their refs/heads/ prefix, and the first
// non-bare entry is the main worktree. LogPath is left empty.
func ParsePorcelain(out string) []model.WorktreeInfo {
	var (
		entries []model.WorktreeInfo
		current *model.WorktreeInfo
		bare    bool
	)
	flush := func() {
		if current != nil && !bare {
			current.IsMain = len(entries) == 0
			entries = append(entries, *current)
		}
		current = nil
		bare = false
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = &model.WorktreeInfo{Path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "branch "):
			if current != nil {
				ref := strings.TrimPrefix(line, "branch ")
				current.Branch = strings.TrimPrefix(ref, "refs/heads/")
			}
		case line == "bare":
			bare = true
		case line == "":
			flush()
		}
	}
	flush()

	return entries
}

// Resolve fills LogPath of every entry using logPath.
func Resolve(entries []model.WorktreeInfo, logPath func(root string) string) []model.WorktreeInfo {
	out := make([]model.WorktreeInfo, len(entries))
	for i, e := range entries {
		e.LogPath = logPath(e.Path)
		out[i] = e
	}
	return out
}

// Discover lists worktrees, resolves their log paths and keeps only those
// whose log file exists.
func Discover(ctx context.Context, lister Lister, logPath func(root string) string) ([]model.WorktreeInfo, error) {
	entries, err := lister.List(ctx)
	if err != nil {
		return nil, err
	}

	var found []model.WorktreeInfo
	for _, e := range Resolve(entries, logPath) {
		if info, err := os.Stat(e.LogPath); err != nil || info.IsDir() {
			continue
		}
		found = append(found, e)
	}
	return found, nil
}

// FindForBranch returns the worktree that has branch checked out.
func FindForBranch(entries []model.WorktreeInfo, branch string) (model.WorktreeInfo, bool) {
	for _, e := range entries {
		if e.Branch == branch {
			return e, true
		}
	}
	return model.WorktreeInfo{}, false
}
