package cmd

import (
	"log"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hamzasclone2/quash/core/config"
)

// initCmd initializes the shell configuration.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the shell configuration in the config directory.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		logger := log.New(cmd.ErrOrStderr(), "", 0)

		fs := afero.NewBasePathFs(afero.NewOsFs(), cfgPath)
		_, err := config.Initialize(fs, logger)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
