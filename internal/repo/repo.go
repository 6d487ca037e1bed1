// Package repo locates the ito project directory that owns a working copy.
package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ito-project/ito/internal/audit"
	"github.com/ito-project/ito/pkg/config"
	"github.com/ito-project/ito/pkg/errclass"
	"github.com/ito-project/ito/pkg/fsutil"
)

// ChangesDirName holds one directory per change proposal.
const ChangesDirName = "changes"

// Project represents a discovered ito project.
type Project struct {
	// Root is the working-copy root that contains the ito directory.
	Root string
	// ItoDir is the absolute path of the ito directory.
	ItoDir string
}

// AuditLogPath returns the audit log of this working copy.
func (p *Project) AuditLogPath() string {
	return audit.LogPath(p.ItoDir)
}

// ChangesDir returns the directory holding change proposals.
func (p *Project) ChangesDir() string {
	return filepath.Join(p.ItoDir, ChangesDirName)
}

// WorktreeLogPath returns the audit log path of another working copy of the
// same repository. The ito directory name is resolved against that
// worktree's own ito.json, since branches may differ.
func WorktreeLogPath(worktreeRoot string) string {
	name, err := config.ProjectDirName(worktreeRoot)
	if err != nil {
		name = config.DefaultProjectDir
	}
	return audit.LogPath(filepath.Join(worktreeRoot, name))
}

// Init creates the ito directory skeleton under root. Existing content is
// left untouched.
func Init(root string) (*Project, error) {
	name, err := config.ProjectDirName(root)
	if err != nil {
		return nil, err
	}
	itoDir := filepath.Join(root, name)

	dirs := []string{
		itoDir,
		filepath.Join(itoDir, ChangesDirName),
		filepath.Dir(audit.LogPath(itoDir)),
	}
	for _, dir := range dirs {
		if err := fsutil.MkdirDurable(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	if _, err := os.Stat(config.Path(itoDir)); os.IsNotExist(err) {
		if err := config.Save(itoDir, config.Default()); err != nil {
			return nil, err
		}
	}

	return &Project{Root: root, ItoDir: itoDir}, nil
}

// Discover walks up from cwd to find the project root (the first directory
// containing the ito directory).
func Discover(cwd string) (*Project, error) {
	path, err := filepath.Abs(cwd)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", cwd, err)
	}
	for {
		name, err := config.ProjectDirName(path)
		if err != nil {
			return nil, err
		}
		itoDir := filepath.Join(path, name)
		if info, err := os.Stat(itoDir); err == nil && info.IsDir() {
			return &Project{Root: path, ItoDir: itoDir}, nil
		}

		parent := filepath.Dir(path)
		if parent == path {
			return nil, errclass.ErrProjectNotFound.WithMessagef(
				"no ito project found in %s or any parent directory", cwd)
		}
		path = parent
	}
}
