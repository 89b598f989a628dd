package commands

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stagecraft/stagecraft/internal/config"
	"github.com/stagecraft/stagecraft/internal/style"
	"github.com/stagecraft/stagecraft/pkg/logging"
)

func ConfigDefaultEnvironment(logger logging.Logger, cfg config.Config, cfgPath string) *cobra.Command {
	var unset bool

	cmd := &cobra.Command{
		Use:   "default-environment [<environment>]",
		Args:  cobra.MaximumNArgs(1),
		Short: "List, set and unset the environment used when neither --env nor a branch rule picks one",
		Long: "You can use this command to list, set, and unset the default environment:\n" +
			"* To list your default environment, run `stagecraft config default-environment`.\n" +
			"* To set your default environment, run `stagecraft config default-environment <environment>`.\n" +
			"* To unset your default environment, run `stagecraft config default-environment --unset`.",
		RunE: logError(logger, func(cmd *cobra.Command, args []string) error {
			switch {
			case unset:
				if len(args) > 0 {
					return errors.Errorf("environment and --unset cannot be specified simultaneously")
				}
				if cfg.DefaultEnvironment == "" {
					logger.Info("No default environment was set")
					return nil
				}
				old := cfg.DefaultEnvironment
				cfg.DefaultEnvironment = ""
				if err := config.Write(cfg, cfgPath); err != nil {
					return errors.Wrapf(err, "writing config to %s", cfgPath)
				}
				logger.Infof("Successfully unset default environment %s", style.Symbol(old))
			case len(args) == 0:
				if cfg.DefaultEnvironment == "" {
					logger.Info("No default environment is set")
					return nil
				}
				logger.Infof("The current default environment is %s", style.Symbol(cfg.DefaultEnvironment))
			default:
				if args[0] == cfg.DefaultEnvironment {
					logger.Infof("Default environment is already set to %s", style.Symbol(args[0]))
					return nil
				}
				cfg.DefaultEnvironment = args[0]
				if err := config.Write(cfg, cfgPath); err != nil {
					return errors.Wrapf(err, "writing config to %s", cfgPath)
				}
				logger.Infof("Successfully set %s as the default environment", style.Symbol(args[0]))
			}
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&unset, "unset", "u", false, "Unset the default environment")
	AddHelpFlag(cmd, "default-environment")
	return cmd
}
