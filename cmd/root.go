// Package cmd wires the syscap command-line surface: init, capture, diff.
package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"syscap/internal/paths"
)

var (
	version = "dev"
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "syscap",
	Short: "Capture host state and diff it across phases",
	Long: `syscap captures a point-in-time snapshot of a host's configuration and
state (command output plus designated files), tagged by a phase label such
as "pre" or "post", and later compares two phases to surface drift.

Captures are driven by a JSON config (see 'syscap init'); artifacts land in
<base-dir>/<tag-dir>/<name>.<phase>. External commands run with no timeout:
a hung command hangs the run.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	cobra.OnInitialize(initSettings)

	rootCmd.PersistentFlags().StringP("config", "c", "capture.json",
		"capture config file")
	rootCmd.PersistentFlags().StringP("base-dir", "b", "~",
		"base directory for capture data")
	rootCmd.PersistentFlags().StringP("tag-dir", "t", "syscap",
		"directory under base-dir holding this config's artifacts")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable verbose logging")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("base_dir", rootCmd.PersistentFlags().Lookup("base-dir"))
	_ = viper.BindPFlag("tag_dir", rootCmd.PersistentFlags().Lookup("tag-dir"))
}

// initSettings loads optional operator defaults from
// ~/.config/syscap/config.yaml. Flags win over the file, the file over
// built-in defaults. A missing settings file is fine.
func initSettings() {
	viper.SetDefault("diff.engine", "external")
	viper.SetDefault("diff.command", "diff")

	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	viper.AddConfigPath(filepath.Join(home, ".config", "syscap"))
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	_ = viper.ReadInConfig()
}

// newLogger builds the logger handed to every component. Warnings and up
// by default; --verbose enables debug.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// dataDir resolves the artifact directory from the base-dir/tag-dir
// settings, expanding a leading ~ in base-dir.
func dataDir() string {
	return paths.DataDir(viper.GetString("base_dir"), viper.GetString("tag_dir"))
}

func configPath() string {
	return viper.GetString("config")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
