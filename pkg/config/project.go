package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// DefaultProjectDir is the ito directory name used when no repo-local
// override is present.
const DefaultProjectDir = ".ito"

// projectFiles are checked in order; the first one present wins.
var projectFiles = []string{"ito.json", ".ito.json"}

type projectFile struct {
	ProjectPath string `json:"projectPath"`
}

// ProjectDirName returns the ito directory name for a repository root,
// honouring a projectPath override in ito.json or .ito.json. Both files
// may contain comments and trailing commas.
func ProjectDirName(root string) (string, error) {
	for _, name := range projectFiles {
		data, err := os.ReadFile(filepath.Join(root, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}

		var pf projectFile
		if err := json.Unmarshal(jsonc.ToJSON(data), &pf); err != nil {
			return "", fmt.Errorf("parse %s: %w", name, err)
		}
		if pf.ProjectPath != "" {
			return pf.ProjectPath, nil
		}
		return DefaultProjectDir, nil
	}
	return DefaultProjectDir, nil
}
