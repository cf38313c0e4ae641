package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/hamzasclone2/quash/core"
	"github.com/hamzasclone2/quash/core/config"
	"github.com/hamzasclone2/quash/core/logger"
	"github.com/hamzasclone2/quash/core/shell"
)

var (
	cfgPath     string
	commandLine string
)

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "quash",
	Short: "Quite a shell",
	Long:  `An interactive command shell with pipelines and background job control.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		appLog, err := configuration.OpenAppLog()
		if err != nil {
			return err
		}
		defer appLog.Close()

		eventLog := logger.NewJsonLinesLogRecorder(appLog).NewSession()

		if commandLine != "" {
			return runOnce(eventLog, commandLine)
		}

		sh, err := core.NewShell(configuration, eventLog)
		if err != nil {
			return err
		}
		defer sh.Close()

		sh.Run()
		return nil
	},
}

// runOnce executes a single command line without starting the read loop.
func runOnce(eventLog *logger.SessionLogger, line string) error {
	stages, err := shell.Parse(line, os.Getenv)
	if err != nil {
		return err
	}
	if shell.IsExitSequence(stages) {
		return nil
	}

	session := core.NewSession(eventLog, os.Stdin, os.Stdout, os.Stderr)
	_, err = session.RunPipeline(line, stages)
	return err
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
	rootCmd.Flags().StringVarP(&commandLine, "command", "c", "", "run a single command line and exit")
}
