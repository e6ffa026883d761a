// Package paths provides path resolution utilities.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading ~ in path to the current user's home
// directory. Only "~" and "~/rest" forms are handled; "~user" is returned
// unchanged. If the home directory cannot be determined the input is
// returned as-is.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// DataDir resolves the data directory from the operator-supplied base
// directory and tag directory. The base directory may start with ~.
//
//	DataDir("~", "syscap")        -> /home/user/syscap
//	DataDir("/var/tmp", "syscap") -> /var/tmp/syscap
func DataDir(baseDir, tagDir string) string {
	return filepath.Join(ExpandHome(baseDir), tagDir)
}

// EnsureDataDir creates dir if it does not exist. The directory is created
// owner-only since captured artifacts may contain sensitive host state.
func EnsureDataDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("data dir %s exists and is not a directory", dir)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("checking data dir %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating data dir %s: %w", dir, err)
	}
	return nil
}

// ArtifactPath returns the path of a phase-tagged artifact inside dataDir.
func ArtifactPath(dataDir, baseName, phase string) string {
	return filepath.Join(dataDir, baseName+"."+phase)
}
