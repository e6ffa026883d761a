package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"syscap/internal/diff"
	"syscap/internal/phase"
	"syscap/internal/runner"
)

var (
	diffPhase   string
	diffAgainst string
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare the artifacts of two phases",
	Long: `Match artifacts between two phases by base name and diff each matched
pair. Artifacts present in only one phase are reported as warnings.

Finding differences is a result, not a failure: the exit code is 0 either
way. Only unrecoverable errors (missing data directory permissions, bad
flags) exit non-zero.`,
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().StringVarP(&diffPhase, "phase", "p", "",
		"phase to compare (e.g. post)")
	diffCmd.Flags().StringVarP(&diffAgainst, "against", "a", "",
		"earlier phase to compare against (e.g. pre)")
	diffCmd.Flags().String("engine", "",
		"diff engine: external (diff -u) or internal")
	_ = diffCmd.MarkFlagRequired("phase")
	_ = diffCmd.MarkFlagRequired("against")
	_ = viper.BindPFlag("diff.engine", diffCmd.Flags().Lookup("engine"))
}

func runDiff(cmd *cobra.Command, _ []string) error {
	log := newLogger()
	dir := dataDir()
	out := cmd.OutOrStdout()

	matches, err := phase.Match(dir, diffAgainst, diffPhase, log)
	if err != nil {
		return err
	}

	differ := diff.NewDiffer(runner.NewExecRunner(), log,
		diff.WithEngine(diff.EngineKind(viper.GetString("diff.engine"))),
		diff.WithCommand(viper.GetString("diff.command")),
	)

	outcomes := differ.DiffAll(dir, diffAgainst, diffPhase, matches.Matched)
	for _, outcome := range outcomes {
		switch outcome.Class {
		case diff.DifferencesFound:
			fmt.Fprintf(out, "=== %s: %s vs %s\n", outcome.Base, diffAgainst, diffPhase)
			fmt.Fprint(out, outcome.Diff)
		case diff.ToolError:
			fmt.Fprintf(out, "=== %s: diff tool error: %s\n", outcome.Base, outcome.Detail)
		}
	}
	return nil
}
