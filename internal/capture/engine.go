// Package capture executes the command groups and file copies declared by
// a capture spec, producing phase-tagged artifacts in the data directory.
package capture

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"syscap/internal/config"
	"syscap/internal/paths"
	"syscap/internal/runner"
)

// CopyError is a fatal file-capture failure. A partial file-list capture is
// silently incomplete, so the whole run aborts rather than trusting it.
type CopyError struct {
	Source string
	Dest   string
	Err    error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copying %s to %s: %v", e.Source, e.Dest, e.Err)
}

func (e *CopyError) Unwrap() error { return e.Err }

// Engine runs captures. Construct with NewEngine.
type Engine struct {
	runner runner.Runner
	log    zerolog.Logger
}

// NewEngine creates a capture engine using the given process runner.
func NewEngine(r runner.Runner, log zerolog.Logger) *Engine {
	return &Engine{runner: r, log: log}
}

// Capture runs every command group and file copy in spec, writing
// phase-tagged artifacts into dataDir. Existing artifacts are left alone
// unless overwrite is set. Command failures are recorded, not fatal; file
// copy failures and artifact write failures abort the run.
//
// The returned Report describes what happened per group and per file, and
// is valid (for what completed) even when err is non-nil.
func (e *Engine) Capture(spec config.Spec, dataDir, phase string, overwrite bool) (Report, error) {
	report := Report{RunID: uuid.New().String(), Phase: phase}
	log := e.log.With().Str("run_id", report.RunID).Str("phase", phase).Logger()
	log.Info().Msg("starting system capture")

	if len(spec.CommandGroups) == 0 {
		log.Warn().Msg("no command groups in spec, skipping command capture")
	}
	for _, group := range spec.CommandGroups {
		result, err := e.captureGroup(group, dataDir, phase, overwrite, log)
		report.Groups = append(report.Groups, result)
		if err != nil {
			return report, err
		}
	}

	if len(spec.FileList) == 0 {
		log.Warn().Msg("no files in spec, skipping file capture")
	} else {
		log.Info().Msg("starting file capture")
	}
	for _, src := range spec.FileList {
		result, err := e.captureFile(src, dataDir, phase, overwrite, log)
		report.Files = append(report.Files, result)
		if err != nil {
			return report, err
		}
	}

	return report, nil
}

func (e *Engine) captureGroup(group config.CommandGroup, dataDir, phase string, overwrite bool, log zerolog.Logger) (GroupResult, error) {
	result := GroupResult{Outfile: group.Outfile}

	if group.Require != "" {
		if _, err := os.Stat(group.Require); err != nil {
			log.Info().Str("outfile", group.Outfile).Str("require", group.Require).
				Msg("required path missing, skipping group")
			result.Status = StatusSkippedRequire
			return result, nil
		}
	}

	artifact := paths.ArtifactPath(dataDir, group.Outfile, phase)
	if _, err := os.Stat(artifact); err == nil && !overwrite {
		log.Warn().Str("artifact", filepath.Base(artifact)).
			Msg("artifact exists and overwrite not set, skipping group")
		result.Status = StatusSkippedExists
		return result, nil
	}

	// Buffer the whole group and write once, so a reader never observes a
	// header with the output still missing.
	var buf strings.Builder
	buf.WriteString(groupHeader(group))

	for _, line := range group.Exec {
		log.Debug().Str("command", line).Msg("running command")
		output, failure := e.runCommand(line)
		buf.WriteString(output)
		if failure != nil {
			log.Warn().Str("command", line).Err(failure.Err).Msg("command failed")
			result.Failures = append(result.Failures, *failure)
		}
	}

	if err := os.WriteFile(artifact, []byte(buf.String()), 0o600); err != nil {
		log.Error().Str("artifact", artifact).Err(err).Msg("writing artifact failed")
		result.Status = StatusFailed
		return result, fmt.Errorf("writing artifact %s: %w", artifact, err)
	}
	result.Status = StatusWritten
	return result, nil
}

// runCommand executes one configured command line and returns the text to
// append to the artifact, plus a failure record if the command could not be
// started or exited non-zero. Failures never stop the group: later commands
// still run and the failure is visible in the artifact itself, keeping the
// two phases comparable line-for-line.
func (e *Engine) runCommand(line string) (string, *CommandFailure) {
	name, args, err := runner.SplitCommand(line)
	if err != nil {
		return fmt.Sprintf("!! %s: %v\n", line, err),
			&CommandFailure{Command: line, Err: err}
	}

	res, err := e.runner.Run(name, args...)
	if err != nil {
		return fmt.Sprintf("!! %s: %v\n", line, err),
			&CommandFailure{Command: line, Err: err}
	}

	output := res.Output
	if output != "" && !strings.HasSuffix(output, "\n") {
		output += "\n"
	}
	if res.ExitCode != 0 {
		output += fmt.Sprintf("!! %s exited %d\n", line, res.ExitCode)
		return output, &CommandFailure{
			Command:  line,
			ExitCode: res.ExitCode,
			Err:      fmt.Errorf("exit status %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)),
		}
	}
	return output, nil
}

func (e *Engine) captureFile(src, dataDir, phase string, overwrite bool, log zerolog.Logger) (FileResult, error) {
	result := FileResult{Source: src}
	dest := paths.ArtifactPath(dataDir, filepath.Base(src), phase)

	info, err := os.Stat(src)
	if err != nil || !info.Mode().IsRegular() {
		log.Warn().Str("file", src).Msg("source missing or not a regular file, skipping")
		result.Status = StatusSkippedMissing
		return result, nil
	}
	if _, err := os.Stat(dest); err == nil && !overwrite {
		log.Warn().Str("artifact", filepath.Base(dest)).
			Msg("artifact exists and overwrite not set, skipping file")
		result.Status = StatusSkippedExists
		return result, nil
	}

	if err := copyPreserving(src, dest, info); err != nil {
		log.Error().Str("file", src).Err(err).Msg("file capture failed, aborting run")
		result.Status = StatusFailed
		return result, &CopyError{Source: src, Dest: dest, Err: err}
	}
	log.Debug().Str("file", src).Str("artifact", filepath.Base(dest)).Msg("copied file")
	result.Status = StatusCopied
	return result, nil
}

// copyPreserving copies src to dest, carrying over the source's permission
// bits and modification time.
func copyPreserving(src, dest string, info os.FileInfo) error {
	in, err := os.Open(src) //nolint:gosec // G304: paths come from the operator's config
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm()) //nolint:gosec // G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Chmod(dest, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dest, info.ModTime(), info.ModTime())
}

// groupHeader renders the one-line header that opens a command artifact.
func groupHeader(group config.CommandGroup) string {
	return fmt.Sprintf("## %s: %s\n", group.Outfile, strings.Join(group.Exec, "; "))
}
