package config

import (
	"errors"
	"fmt"
	"os"
)

// ErrExists is returned by WriteDefault when the target config already
// exists and overwrite was not requested.
var ErrExists = errors.New("config already exists")

// defaultTemplate is the starter capture spec written by `syscap init`.
// Each command group is a baseline host-state probe; the file list covers
// common system files an operator wants diffed across changes.
const defaultTemplate = `{
  "command_groups": [
    {
      "require": "/usr/bin/ls",
      "exec": ["/usr/bin/ls -la"],
      "outfile": "ls"
    },
    {
      "exec": ["/sbin/ip -4 a s", "/sbin/ip route show"],
      "outfile": "network"
    },
    {
      "exec": ["/usr/bin/df -TP", "/usr/bin/lsblk"],
      "outfile": "storage"
    }
  ],
  "file_list": ["/etc/hosts", "/etc/hostname", "/etc/wgetrc", "/etc/rsyncd.conf"]
}
`

// WriteDefault writes the default capture spec to path. An existing file is
// left untouched unless overwrite is set. The file is written owner-only so
// the loader's permission precondition accepts it as-is.
func WriteDefault(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}
	if err := os.WriteFile(path, []byte(defaultTemplate), 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}
