package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"syscap/internal/capture"
	"syscap/internal/config"
	"syscap/internal/runner"
)

var (
	capturePhase     string
	captureOverwrite bool
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Run a phase-tagged capture",
	Long: `Run every command group and file copy in the capture config, writing
phase-tagged artifacts into the data directory. Existing artifacts are left
alone unless --overwrite is given, so reruns are non-destructive by default.

A command that exits non-zero is recorded in its artifact and the run
continues; a file that cannot be copied aborts the run.`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().StringVarP(&capturePhase, "phase", "p", "",
		"phase tag for this capture (e.g. pre, post)")
	captureCmd.Flags().BoolVarP(&captureOverwrite, "overwrite", "o", false,
		"replace existing artifacts for this phase")
	_ = captureCmd.MarkFlagRequired("phase")
}

func runCapture(cmd *cobra.Command, _ []string) error {
	log := newLogger()
	dir := dataDir()
	out := cmd.OutOrStdout()

	spec, err := config.Load(configPath(), dir, log)
	if err != nil {
		return err
	}

	engine := capture.NewEngine(runner.NewExecRunner(), log)
	report, err := engine.Capture(spec, dir, capturePhase, captureOverwrite)
	if err != nil {
		return err
	}

	for _, group := range report.Groups {
		fmt.Fprintf(out, "%-16s %s.%s\n", group.Status, group.Outfile, report.Phase)
		for _, failure := range group.Failures {
			fmt.Fprintf(out, "                 command failed: %s (%v)\n", failure.Command, failure.Err)
		}
	}
	for _, file := range report.Files {
		fmt.Fprintf(out, "%-16s %s\n", file.Status, file.Source)
	}
	if n := report.FailureCount(); n > 0 {
		log.Warn().Int("failures", n).Msg("capture finished with recorded command failures")
	}
	return nil
}
