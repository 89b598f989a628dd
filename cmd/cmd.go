package cmd

import (
	"github.com/heroku/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stagecraft/stagecraft/internal/commands"
	"github.com/stagecraft/stagecraft/internal/config"
	"github.com/stagecraft/stagecraft/internal/runner"
	"github.com/stagecraft/stagecraft/pkg/logging"
)

// Version is replaced at build time.
var Version = "0.0.0"

// ConfigurableLogger defines behavior required by the StagecraftCommand
type ConfigurableLogger interface {
	logging.Logger
	WantTime(f bool)
	WantQuiet(f bool)
	WantVerbose(f bool)
}

// NewStagecraftCommand generates a Stagecraft command
func NewStagecraftCommand(logger ConfigurableLogger) (*cobra.Command, error) {
	cobra.EnableCommandSorting = false
	cfg, cfgPath, err := initConfig()
	if err != nil {
		return nil, err
	}

	opts := &commands.Options{}

	rootCmd := &cobra.Command{
		Use:   "stagecraft",
		Short: "CLI for building and deploying services with environment specific files staged in place",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if fs := cmd.Flags(); fs != nil {
				if flag, err := fs.GetBool("no-color"); err == nil && (flag || cfg.NoColor) {
					color.Disable(true)
				}
				if flag, err := fs.GetBool("quiet"); err == nil {
					logger.WantQuiet(flag)
				}
				if flag, err := fs.GetBool("verbose"); err == nil {
					logger.WantVerbose(flag)
				}
				if flag, err := fs.GetBool("timestamps"); err == nil {
					logger.WantTime(flag || cfg.Timestamps)
				}
			}
		},
	}

	rootCmd.PersistentFlags().Bool("no-color", false, "Disable color output")
	rootCmd.PersistentFlags().Bool("timestamps", false, "Enable timestamps in output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Show less output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Show more output")
	rootCmd.PersistentFlags().StringVarP(&opts.ProjectDir, "project", "C", "", "Project directory (defaults to the current directory or its nearest parent holding stagecraft.yml)")
	rootCmd.PersistentFlags().StringVarP(&opts.Environment, "env", "e", "", "Environment to use (defaults to the branch mapping, then the configured default)")
	rootCmd.Flags().Bool("version", false, "Show current 'stagecraft' version")

	commands.AddHelpFlag(rootCmd, "stagecraft")

	r := runner.NewExec(logger)

	rootCmd.AddCommand(commands.Stage(logger, cfg, opts))
	rootCmd.AddCommand(commands.Unstage(logger, cfg, opts))
	rootCmd.AddCommand(commands.Build(logger, cfg, opts, r))
	rootCmd.AddCommand(commands.Deploy(logger, cfg, opts, r))
	rootCmd.AddCommand(commands.Mounts(logger, cfg, opts))

	rootCmd.AddCommand(commands.NewConfigCommand(logger, cfg, cfgPath))
	rootCmd.AddCommand(commands.Version(logger, Version))

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{.Version}}{{"\n"}}`)
	rootCmd.SetOut(logging.GetWriterForLevel(logger, logging.InfoLevel))
	rootCmd.SetErr(logging.GetWriterForLevel(logger, logging.ErrorLevel))

	return rootCmd, nil
}

func initConfig() (config.Config, string, error) {
	path, err := config.DefaultConfigPath()
	if err != nil {
		return config.Config{}, "", errors.Wrap(err, "getting config path")
	}

	cfg, err := config.Read(path)
	if err != nil {
		return config.Config{}, "", errors.Wrap(err, "reading stagecraft config")
	}
	return cfg, path, nil
}
