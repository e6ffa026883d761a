package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"syscap/internal/config"
	"syscap/internal/runner"
)

// fakeRunner returns canned results keyed by the full command line.
type fakeRunner struct {
	results map[string]runner.Result
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) Run(name string, args ...string) (runner.Result, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, line)
	if err, ok := f.errs[line]; ok {
		return runner.Result{}, err
	}
	if res, ok := f.results[line]; ok {
		return res, nil
	}
	return runner.Result{Output: "canned\n"}, nil
}

func newEngine(r runner.Runner) *Engine {
	return NewEngine(r, zerolog.Nop())
}

func listArtifacts(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCapture_EmptySpec(t *testing.T) {
	dir := t.TempDir()
	engine := newEngine(&fakeRunner{})

	report, err := engine.Capture(config.Spec{}, dir, "pre", false)
	require.NoError(t, err)
	require.Empty(t, report.Groups)
	require.Empty(t, report.Files)
	require.Empty(t, listArtifacts(t, dir))
	require.NotEmpty(t, report.RunID)
}

func TestCapture_CommandGroups(t *testing.T) {
	spec := config.Spec{CommandGroups: []config.CommandGroup{
		{Exec: []string{"echo hello"}, Outfile: "greet"},
	}}

	t.Run("writes header plus output", func(t *testing.T) {
		dir := t.TempDir()
		fake := &fakeRunner{results: map[string]runner.Result{
			"echo hello": {Output: "hello\n"},
		}}

		report, err := newEngine(fake).Capture(spec, dir, "pre", false)
		require.NoError(t, err)
		require.Equal(t, []string{"echo hello"}, fake.calls)
		require.Equal(t, StatusWritten, report.Groups[0].Status)

		data, err := os.ReadFile(filepath.Join(dir, "greet.pre"))
		require.NoError(t, err)
		require.Equal(t, "## greet: echo hello\nhello\n", string(data))
	})

	t.Run("multiple commands append in order", func(t *testing.T) {
		dir := t.TempDir()
		multi := config.Spec{CommandGroups: []config.CommandGroup{
			{Exec: []string{"echo one", "echo two"}, Outfile: "pair"},
		}}
		fake := &fakeRunner{results: map[string]runner.Result{
			"echo one": {Output: "one\n"},
			"echo two": {Output: "two\n"},
		}}

		_, err := newEngine(fake).Capture(multi, dir, "pre", false)
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, "pair.pre"))
		require.NoError(t, err)
		require.Equal(t, "## pair: echo one; echo two\none\ntwo\n", string(data))
	})

	t.Run("idempotent without overwrite", func(t *testing.T) {
		dir := t.TempDir()
		fake := &fakeRunner{results: map[string]runner.Result{
			"echo hello": {Output: "hello\n"},
		}}
		engine := newEngine(fake)

		_, err := engine.Capture(spec, dir, "pre", false)
		require.NoError(t, err)
		first, err := os.ReadFile(filepath.Join(dir, "greet.pre"))
		require.NoError(t, err)

		fake.results["echo hello"] = runner.Result{Output: "changed\n"}
		report, err := engine.Capture(spec, dir, "pre", false)
		require.NoError(t, err)
		require.Equal(t, StatusSkippedExists, report.Groups[0].Status)

		second, err := os.ReadFile(filepath.Join(dir, "greet.pre"))
		require.NoError(t, err)
		require.Equal(t, first, second, "second run must be a no-op per artifact")
	})

	t.Run("overwrite reflects only the second run", func(t *testing.T) {
		dir := t.TempDir()
		fake := &fakeRunner{results: map[string]runner.Result{
			"echo hello": {Output: "hello\n"},
		}}
		engine := newEngine(fake)

		_, err := engine.Capture(spec, dir, "pre", true)
		require.NoError(t, err)

		fake.results["echo hello"] = runner.Result{Output: "goodbye\n"}
		_, err = engine.Capture(spec, dir, "pre", true)
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, "greet.pre"))
		require.NoError(t, err)
		require.Equal(t, "## greet: echo hello\ngoodbye\n", string(data))
		require.NotContains(t, string(data), "hello")
	})

	t.Run("require gating skips group silently", func(t *testing.T) {
		dir := t.TempDir()
		gated := config.Spec{CommandGroups: []config.CommandGroup{
			{Require: filepath.Join(dir, "no-such-binary"), Exec: []string{"echo hi"}, Outfile: "gated"},
		}}
		fake := &fakeRunner{}

		report, err := newEngine(fake).Capture(gated, dir, "pre", false)
		require.NoError(t, err)
		require.Equal(t, StatusSkippedRequire, report.Groups[0].Status)
		require.Empty(t, fake.calls, "gated group must not execute")
		require.Empty(t, listArtifacts(t, dir))
	})

	t.Run("require satisfied runs group", func(t *testing.T) {
		dir := t.TempDir()
		present := filepath.Join(dir, "present")
		require.NoError(t, os.WriteFile(present, nil, 0o600))
		gated := config.Spec{CommandGroups: []config.CommandGroup{
			{Require: present, Exec: []string{"echo hi"}, Outfile: "gated"},
		}}

		report, err := newEngine(&fakeRunner{}).Capture(gated, dir, "pre", false)
		require.NoError(t, err)
		require.Equal(t, StatusWritten, report.Groups[0].Status)
	})

	t.Run("non-zero exit recorded, group continues", func(t *testing.T) {
		dir := t.TempDir()
		mixed := config.Spec{CommandGroups: []config.CommandGroup{
			{Exec: []string{"probe one", "probe two"}, Outfile: "mixed"},
		}}
		fake := &fakeRunner{results: map[string]runner.Result{
			"probe one": {Output: "bad\n", Stderr: "bad\n", ExitCode: 3},
			"probe two": {Output: "good\n"},
		}}

		report, err := newEngine(fake).Capture(mixed, dir, "pre", false)
		require.NoError(t, err, "command failure must not fail the capture")
		require.Equal(t, StatusWritten, report.Groups[0].Status)
		require.Len(t, report.Groups[0].Failures, 1)
		require.Equal(t, "probe one", report.Groups[0].Failures[0].Command)
		require.Equal(t, 3, report.Groups[0].Failures[0].ExitCode)
		require.Equal(t, 1, report.FailureCount())

		data, err := os.ReadFile(filepath.Join(dir, "mixed.pre"))
		require.NoError(t, err)
		require.Contains(t, string(data), "!! probe one exited 3")
		require.Contains(t, string(data), "good\n", "later commands still run")
	})

	t.Run("unstartable command recorded, group continues", func(t *testing.T) {
		dir := t.TempDir()
		broken := config.Spec{CommandGroups: []config.CommandGroup{
			{Exec: []string{"missing-binary", "echo ok"}, Outfile: "broken"},
		}}
		fake := &fakeRunner{
			errs:    map[string]error{"missing-binary": fmt.Errorf("running missing-binary: executable file not found")},
			results: map[string]runner.Result{"echo ok": {Output: "ok\n"}},
		}

		report, err := newEngine(fake).Capture(broken, dir, "pre", false)
		require.NoError(t, err)
		require.Len(t, report.Groups[0].Failures, 1)

		data, err := os.ReadFile(filepath.Join(dir, "broken.pre"))
		require.NoError(t, err)
		require.Contains(t, string(data), "ok\n")
	})
}

func TestCapture_FileList(t *testing.T) {
	t.Run("copies file preserving metadata", func(t *testing.T) {
		srcDir := t.TempDir()
		dataDir := t.TempDir()
		src := filepath.Join(srcDir, "hosts")
		require.NoError(t, os.WriteFile(src, []byte("127.0.0.1 localhost\n"), 0o644))
		modTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, os.Chtimes(src, modTime, modTime))

		spec := config.Spec{FileList: []string{src}}
		report, err := newEngine(&fakeRunner{}).Capture(spec, dataDir, "pre", false)
		require.NoError(t, err)
		require.Equal(t, StatusCopied, report.Files[0].Status)

		dest := filepath.Join(dataDir, "hosts.pre")
		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		require.Equal(t, "127.0.0.1 localhost\n", string(data))

		info, err := os.Stat(dest)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o644), info.Mode().Perm())
		require.True(t, info.ModTime().Equal(modTime))
	})

	t.Run("missing source skipped with warning", func(t *testing.T) {
		dataDir := t.TempDir()
		spec := config.Spec{FileList: []string{filepath.Join(dataDir, "no-such-file")}}

		report, err := newEngine(&fakeRunner{}).Capture(spec, dataDir, "pre", false)
		require.NoError(t, err)
		require.Equal(t, StatusSkippedMissing, report.Files[0].Status)
		require.Empty(t, listArtifacts(t, dataDir))
	})

	t.Run("existing destination skipped without overwrite", func(t *testing.T) {
		srcDir := t.TempDir()
		dataDir := t.TempDir()
		src := filepath.Join(srcDir, "hostname")
		require.NoError(t, os.WriteFile(src, []byte("new\n"), 0o600))
		dest := filepath.Join(dataDir, "hostname.pre")
		require.NoError(t, os.WriteFile(dest, []byte("old\n"), 0o600))

		spec := config.Spec{FileList: []string{src}}
		report, err := newEngine(&fakeRunner{}).Capture(spec, dataDir, "pre", false)
		require.NoError(t, err)
		require.Equal(t, StatusSkippedExists, report.Files[0].Status)

		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		require.Equal(t, "old\n", string(data))
	})

	t.Run("overwrite replaces destination", func(t *testing.T) {
		srcDir := t.TempDir()
		dataDir := t.TempDir()
		src := filepath.Join(srcDir, "hostname")
		require.NoError(t, os.WriteFile(src, []byte("new\n"), 0o600))
		dest := filepath.Join(dataDir, "hostname.pre")
		require.NoError(t, os.WriteFile(dest, []byte("old\n"), 0o600))

		spec := config.Spec{FileList: []string{src}}
		_, err := newEngine(&fakeRunner{}).Capture(spec, dataDir, "pre", true)
		require.NoError(t, err)

		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		require.Equal(t, "new\n", string(data))
	})

	t.Run("copy failure aborts the run", func(t *testing.T) {
		srcDir := t.TempDir()
		dataDir := t.TempDir()
		src := filepath.Join(srcDir, "hosts")
		require.NoError(t, os.WriteFile(src, []byte("x\n"), 0o600))
		// Occupy the destination with a directory so the copy cannot open it.
		require.NoError(t, os.Mkdir(filepath.Join(dataDir, "hosts.pre"), 0o700))

		after := filepath.Join(srcDir, "after")
		require.NoError(t, os.WriteFile(after, []byte("y\n"), 0o600))

		spec := config.Spec{FileList: []string{src, after}}
		report, err := newEngine(&fakeRunner{}).Capture(spec, dataDir, "pre", true)

		var copyErr *CopyError
		require.ErrorAs(t, err, &copyErr)
		require.Equal(t, src, copyErr.Source)
		require.Len(t, report.Files, 1, "later files must not be attempted after a fatal copy error")
	})
}
