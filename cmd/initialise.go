package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"syscap/internal/config"
)

var initOverwrite bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default capture config",
	Long: `Write a starter capture config to the config path. The template probes
directory listings, network addressing and routes, and storage layout, and
copies a handful of common system files.

An existing config is left untouched unless --overwrite is given.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initOverwrite, "overwrite", "o", false,
		"replace an existing config file")
}

func runInit(cmd *cobra.Command, _ []string) error {
	log := newLogger()
	path := configPath()

	err := config.WriteDefault(path, initOverwrite)
	if errors.Is(err, config.ErrExists) {
		log.Warn().Str("config", path).
			Msg("config exists and overwrite (-o) not specified, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote default config to %s\n", path)
	return nil
}
