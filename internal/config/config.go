// Package config loads and validates the capture specification that drives
// a syscap run.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"syscap/internal/paths"
)

// CommandGroup is a named set of commands whose combined output is written
// to one artifact.
type CommandGroup struct {
	// Require is an optional path that must exist for the group to run.
	// Typically the binary the group depends on.
	Require string `json:"require,omitempty"`
	// Exec holds the command lines to run, in order.
	Exec []string `json:"exec"`
	// Outfile is the artifact base name the group's output is written to.
	Outfile string `json:"outfile"`
}

// Spec is the validated capture specification.
type Spec struct {
	CommandGroups []CommandGroup `json:"command_groups,omitempty"`
	FileList      []string       `json:"file_list,omitempty"`
}

// ErrorKind classifies config load failures.
type ErrorKind int

const (
	// KindNotFound means the config file is missing or unreadable.
	KindNotFound ErrorKind = iota
	// KindPermissionTooOpen means the config file is group- or
	// world-writable and could be tampered with by untrusted users.
	KindPermissionTooOpen
	// KindParseError means the content is not a well-formed capture spec.
	KindParseError
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindPermissionTooOpen:
		return "permission too open"
	case KindParseError:
		return "parse error"
	default:
		return "unknown"
	}
}

// Error is a config load failure. Always fatal to the run.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Path, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// groupWriteBits covers group and other write permission.
const groupWriteBits = 0o022

// Load reads and validates the capture spec at path. On success it ensures
// dataDir exists, created owner-only if absent, so that a valid config
// always has somewhere to capture into.
//
// Failures are reported as *Error: the file missing or unreadable
// (KindNotFound), group- or world-writable (KindPermissionTooOpen), or not
// a well-formed spec (KindParseError). Missing command_groups/file_list
// keys default to empty.
func Load(path, dataDir string, log zerolog.Logger) (Spec, error) {
	log.Debug().Str("config", path).Msg("loading capture spec")

	info, err := os.Stat(path)
	if err != nil {
		return Spec{}, &Error{Kind: KindNotFound, Path: path, Err: err}
	}
	if mode := info.Mode().Perm(); mode&groupWriteBits != 0 {
		return Spec{}, &Error{
			Kind: KindPermissionTooOpen,
			Path: path,
			Err:  fmt.Errorf("mode %04o allows group/other writes, want owner-writable only", mode),
		}
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied config path
	if err != nil {
		return Spec{}, &Error{Kind: KindNotFound, Path: path, Err: err}
	}

	var spec Spec
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return Spec{}, &Error{Kind: KindParseError, Path: path, Err: err}
	}

	if err := validate(spec, log); err != nil {
		return Spec{}, &Error{Kind: KindParseError, Path: path, Err: err}
	}

	if err := paths.EnsureDataDir(dataDir); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// validate rejects structurally broken groups. Duplicate outfiles are
// tolerated, they silently overwrite one another within a run, but the
// operator is warned.
func validate(spec Spec, log zerolog.Logger) error {
	seen := make(map[string]bool, len(spec.CommandGroups))
	for i, group := range spec.CommandGroups {
		if group.Outfile == "" {
			return fmt.Errorf("command_groups[%d]: outfile is required", i)
		}
		if len(group.Exec) == 0 {
			return fmt.Errorf("command_groups[%d] (%s): exec must list at least one command", i, group.Outfile)
		}
		if seen[group.Outfile] {
			log.Warn().Str("outfile", group.Outfile).
				Msg("duplicate outfile, groups will overwrite each other's artifact")
		}
		seen[group.Outfile] = true
	}
	for i, file := range spec.FileList {
		if file == "" {
			return fmt.Errorf("file_list[%d]: empty path", i)
		}
	}
	return nil
}
