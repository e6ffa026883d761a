package capture

// Status describes what happened to one group or file during a capture.
type Status string

const (
	// StatusWritten means the group's artifact was written.
	StatusWritten Status = "written"
	// StatusCopied means the file was copied to its artifact.
	StatusCopied Status = "copied"
	// StatusSkippedRequire means the group's require path was missing.
	StatusSkippedRequire Status = "skipped-require"
	// StatusSkippedExists means the artifact already existed and overwrite
	// was not requested.
	StatusSkippedExists Status = "skipped-exists"
	// StatusSkippedMissing means the source file was missing or not a
	// regular file.
	StatusSkippedMissing Status = "skipped-missing"
	// StatusFailed means a fatal I/O error interrupted the capture.
	StatusFailed Status = "failed"
)

// CommandFailure records one command that could not run or exited non-zero.
// Never fatal to the capture.
type CommandFailure struct {
	Command  string
	ExitCode int
	Err      error
}

// GroupResult is the per-command-group slice of a Report.
type GroupResult struct {
	Outfile  string
	Status   Status
	Failures []CommandFailure
}

// FileResult is the per-file slice of a Report.
type FileResult struct {
	Source string
	Status Status
}

// Report summarizes one capture run.
type Report struct {
	RunID  string
	Phase  string
	Groups []GroupResult
	Files  []FileResult
}

// FailureCount returns the number of recorded command failures across all
// groups.
func (r Report) FailureCount() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Failures)
	}
	return n
}
