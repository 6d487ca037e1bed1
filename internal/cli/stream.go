package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ito-project/ito/internal/repo"
	"github.com/ito-project/ito/internal/stream"
	"github.com/ito-project/ito/internal/worktree"
	"github.com/ito-project/ito/pkg/model"
)

var (
	streamAllWorktrees bool
	streamLast         int
	streamInterval     time.Duration
)

var auditStreamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Follow audit events live",
	Long: `Follow new audit events as they are appended. With --all-worktrees every
git worktree of the repository that has an audit log is watched, and
worktrees created later are picked up automatically.

Events are shown in the order they are noticed, not sorted by timestamp.
Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}

		cfg := stream.Config{
			PollInterval:       s.config.Audit.Stream.PollInterval.Std(),
			RediscoverInterval: s.config.Audit.Stream.RediscoverInterval.Std(),
			Backfill:           s.config.Audit.Stream.Last,
			Filter:             auditFilter(),
		}
		if cmd.Flags().Changed("last") {
			cfg.Backfill = streamLast
		}
		if cmd.Flags().Changed("interval") {
			cfg.PollInterval = streamInterval
		}

		discover := s.currentSource
		if streamAllWorktrees {
			discover = func(ctx context.Context) ([]model.WorktreeInfo, error) {
				return worktree.Discover(ctx, s.worktrees(), repo.WorktreeLogPath)
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		return stream.NewWatcher(discover, cfg).Run(ctx, func(te model.TaggedEvent) {
			if jsonOutput {
				// One object per line so the output can itself be tailed.
				fmt.Fprintln(out, compactJSON(te))
				return
			}
			fmt.Fprintln(out, renderTagged(te))
		})
	},
}

// currentSource discovers only this working copy's log, once it exists.
func (s *session) currentSource(ctx context.Context) ([]model.WorktreeInfo, error) {
	path := s.project.AuditLogPath()
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	branch, _ := s.git.Run(ctx, "symbolic-ref", "--short", "HEAD")
	return []model.WorktreeInfo{{Path: s.project.Root, Branch: branch, LogPath: path}}, nil
}

func init() {
	auditStreamCmd.Flags().BoolVar(&streamAllWorktrees, "all-worktrees", false, "watch every git worktree")
	auditStreamCmd.Flags().IntVar(&streamLast, "last", 10, "backfill the last N events of each log")
	auditStreamCmd.Flags().DurationVar(&streamInterval, "interval", 500*time.Millisecond, "poll interval")
	auditStreamCmd.Flags().StringVar(&auditEntity, "entity", "", "filter by entity kind")
	auditStreamCmd.Flags().StringVar(&auditOp, "op", "", "filter by operation")
	_ = auditStreamCmd.RegisterFlagCompletionFunc("entity", completeEntityKinds)
	auditCmd.AddCommand(auditStreamCmd)
}
