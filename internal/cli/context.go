package cli

import (
	"context"
	"os"

	"github.com/ito-project/ito/internal/audit"
	"github.com/ito-project/ito/internal/filestate"
	"github.com/ito-project/ito/internal/repo"
	"github.com/ito-project/ito/internal/worktree"
	"github.com/ito-project/ito/pkg/config"
	"github.com/ito-project/ito/pkg/model"
)

func discoverProject() (*repo.Project, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return repo.Discover(cwd)
}

// session bundles what a command needs to read or write the audit log of
// the current project.
type session struct {
	project *repo.Project
	config  *config.Config
	git     *worktree.Git
}

func openSession() (*session, error) {
	p, err := discoverProject()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(p.ItoDir)
	if err != nil {
		return nil, err
	}
	return &session{project: p, config: cfg, git: worktree.NewGit(p.Root)}, nil
}

// writer returns the log writer for mutation commands, or a discarding
// writer when auditing is disabled.
func (s *session) writer() audit.Writer {
	if !s.config.Audit.Enabled {
		return audit.DiscardWriter{}
	}
	return audit.NewFileWriter(s.project.AuditLogPath())
}

func (s *session) eventContext(ctx context.Context) model.EventContext {
	return audit.ResolveContext(ctx, s.project.ItoDir, s.git)
}

func (s *session) identity(ctx context.Context) string {
	return audit.ResolveIdentity(ctx, s.git)
}

// reconciler wires the task file-state provider to the project log.
// Compensating events are always written, even with auditing disabled,
// since the caller asked for them explicitly.
func (s *session) reconciler(ctx context.Context) *audit.Reconciler {
	return &audit.Reconciler{
		LogPath:  s.project.AuditLogPath(),
		Provider: filestate.NewTasksProvider(s.project.ChangesDir()),
		Writer:   audit.NewFileWriter(s.project.AuditLogPath()),
		Context:  s.eventContext(ctx),
	}
}

func (s *session) worktrees() worktree.Lister {
	return &worktree.GitLister{Git: s.git}
}
