// Package diff compares matched artifact pairs across two phases and
// classifies the result of each comparison.
package diff

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sergi/go-diff/diffmatchpatch"

	"syscap/internal/paths"
	"syscap/internal/runner"
)

// Classification says what one pairwise comparison found.
type Classification int

const (
	// NoDifference means the two artifacts compare equal.
	NoDifference Classification = iota
	// DifferencesFound means the artifacts differ; Outcome.Diff holds the
	// unified diff text. A reported result, not a failure.
	DifferencesFound
	// ToolError means the comparison itself failed. Reported per pair and
	// never aborts the remaining comparisons.
	ToolError
)

func (c Classification) String() string {
	switch c {
	case NoDifference:
		return "no difference"
	case DifferencesFound:
		return "differences found"
	case ToolError:
		return "diff tool error"
	default:
		return "unknown"
	}
}

// Outcome is the result of diffing one matched base name.
type Outcome struct {
	Base   string
	Class  Classification
	Diff   string // unified diff text when Class is DifferencesFound
	Detail string // tool stderr or error text when Class is ToolError
}

// EngineKind selects how artifact pairs are compared.
type EngineKind string

const (
	// EngineExternal shells out to a line-oriented diff tool.
	EngineExternal EngineKind = "external"
	// EngineInternal computes the diff in-process.
	EngineInternal EngineKind = "internal"
)

// DefaultCommand is the external diff tool invoked by EngineExternal.
const DefaultCommand = "diff"

// Differ compares matched artifact pairs.
type Differ struct {
	runner  runner.Runner
	log     zerolog.Logger
	engine  EngineKind
	command string
}

// Option configures a Differ.
type Option func(*Differ)

// WithEngine selects the comparison engine.
func WithEngine(kind EngineKind) Option {
	return func(d *Differ) { d.engine = kind }
}

// WithCommand overrides the external diff command name.
func WithCommand(command string) Option {
	return func(d *Differ) { d.command = command }
}

// NewDiffer creates a Differ. The default engine shells out to `diff -u`.
func NewDiffer(r runner.Runner, log zerolog.Logger, opts ...Option) *Differ {
	d := &Differ{runner: r, log: log, engine: EngineExternal, command: DefaultCommand}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiffAll compares every matched base name between phaseA and phaseB,
// in the given order. A failed comparison yields a ToolError outcome for
// that pair; later pairs are still processed.
func (d *Differ) DiffAll(dataDir, phaseA, phaseB string, matched []string) []Outcome {
	outcomes := make([]Outcome, 0, len(matched))
	for _, base := range matched {
		pathA := paths.ArtifactPath(dataDir, base, phaseA)
		pathB := paths.ArtifactPath(dataDir, base, phaseB)

		var outcome Outcome
		if d.engine == EngineInternal {
			outcome = d.diffInternal(base, pathA, pathB)
		} else {
			outcome = d.diffExternal(base, pathA, pathB)
		}

		switch outcome.Class {
		case NoDifference:
			d.log.Debug().Str("artifact", base).Msg("no differences found")
		case DifferencesFound:
			d.log.Warn().Str("artifact", base).Msg("diff found")
		case ToolError:
			d.log.Error().Str("artifact", base).Str("detail", outcome.Detail).Msg("error running diff")
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// diffExternal classifies by the external tool's exit code: 0 no
// difference, 1 differences, anything else a tool error.
func (d *Differ) diffExternal(base, pathA, pathB string) Outcome {
	res, err := d.runner.Run(d.command, "-u", pathA, pathB)
	if err != nil {
		return Outcome{Base: base, Class: ToolError, Detail: err.Error()}
	}
	switch res.ExitCode {
	case 0:
		return Outcome{Base: base, Class: NoDifference}
	case 1:
		return Outcome{Base: base, Class: DifferencesFound, Diff: res.Output}
	default:
		return Outcome{Base: base, Class: ToolError, Detail: res.Stderr}
	}
}

func (d *Differ) diffInternal(base, pathA, pathB string) Outcome {
	contentA, err := os.ReadFile(pathA) //nolint:gosec // G304: artifact paths are derived from the data dir
	if err != nil {
		return Outcome{Base: base, Class: ToolError, Detail: err.Error()}
	}
	contentB, err := os.ReadFile(pathB) //nolint:gosec // G304
	if err != nil {
		return Outcome{Base: base, Class: ToolError, Detail: err.Error()}
	}
	if string(contentA) == string(contentB) {
		return Outcome{Base: base, Class: NoDifference}
	}
	text := renderUnified(pathA, pathB, string(contentA), string(contentB))
	return Outcome{Base: base, Class: DifferencesFound, Diff: text}
}

// renderUnified produces unified-style diff text from a line-level
// diffmatchpatch comparison.
func renderUnified(pathA, pathB, a, b string) string {
	dmp := diffmatchpatch.New()
	runesA, runesB, lines := dmp.DiffLinesToRunes(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(runesA, runesB, false), lines)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", pathA, pathB)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range splitKeepingLines(d.Text) {
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

// splitKeepingLines splits text into lines, each retaining its trailing
// newline except possibly the last.
func splitKeepingLines(text string) []string {
	if text == "" {
		return nil
	}
	var lines []string
	for {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			lines = append(lines, text)
			return lines
		}
		lines = append(lines, text[:idx+1])
		text = text[idx+1:]
		if text == "" {
			return lines
		}
	}
}
