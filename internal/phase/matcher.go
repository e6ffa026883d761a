// Package phase enumerates phase-tagged artifacts in a data directory and
// matches them across two capture phases.
package phase

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// MatchResult holds the outcome of comparing two phases' artifact listings.
// Matching is by exact base-name equality after stripping the phase suffix.
type MatchResult struct {
	// Matched lists base names present in both phases, in enumeration
	// order. Callers must not assume any particular order.
	Matched []string
	// MissingInA lists base names present only in phase B.
	MissingInA []string
	// MissingInB lists base names present only in phase A.
	MissingInB []string
}

// List returns the base names of all artifacts in dataDir tagged with the
// given phase. A missing directory is treated as empty.
func List(dataDir, phase string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing artifacts in %s: %w", dataDir, err)
	}

	suffix := "." + phase
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		base := strings.TrimSuffix(name, suffix)
		if base == name || base == "" {
			continue
		}
		names = append(names, base)
	}
	return names, nil
}

// Match lists both phases' artifacts in dataDir and reports which base
// names are shared and which exist in only one phase. Missing counterparts
// are warnings for the caller, never an error; an empty data directory
// yields an all-empty result.
func Match(dataDir, phaseA, phaseB string, log zerolog.Logger) (MatchResult, error) {
	basesA, err := List(dataDir, phaseA)
	if err != nil {
		return MatchResult{}, err
	}
	basesB, err := List(dataDir, phaseB)
	if err != nil {
		return MatchResult{}, err
	}

	inA := toSet(basesA)
	inB := toSet(basesB)

	var result MatchResult
	for _, base := range basesA {
		if inB[base] {
			result.Matched = append(result.Matched, base)
		} else {
			result.MissingInB = append(result.MissingInB, base)
			log.Warn().Str("artifact", base).Str("phase", phaseB).Msg("missing phase file")
		}
	}
	for _, base := range basesB {
		if !inA[base] {
			result.MissingInA = append(result.MissingInA, base)
			log.Warn().Str("artifact", base).Str("phase", phaseA).Msg("missing phase file")
		}
	}
	return result, nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}
