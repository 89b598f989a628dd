package commands

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stagecraft/stagecraft/internal/config"
	"github.com/stagecraft/stagecraft/internal/style"
	"github.com/stagecraft/stagecraft/pkg/logging"
)

func Stage(logger logging.Logger, cfg config.Config, opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage <service>",
		Args:  cobra.ExactArgs(1),
		Short: "Mount the files of a service and leave them in place",
		Long: "Mount the files configured for a service into its directory and leave them there.\n\n" +
			"Run `stagecraft unstage` to put the original files back.",
		Example: "stagecraft stage api --env staging",
		RunE: logError(logger, func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(opts, cfg, logger)
			if err != nil {
				return err
			}
			if _, err := ws.recoverMounts(); err != nil {
				return err
			}

			svc, env, err := ws.service(args[0], opts.Environment, cfg)
			if err != nil {
				return err
			}

			if err := ws.coordinator.DoMount(cmd.Context(), svc.Mounts.FileMap(), svc.Dir); err != nil {
				return errors.Wrapf(err, "staging %s", style.Symbol(args[0]))
			}

			logger.Infof("Staged %d mount(s) for %s%s", len(svc.Mounts), style.Symbol(args[0]), envSuffix(env))
			return nil
		}),
	}

	AddHelpFlag(cmd, "stage")
	return cmd
}

func Unstage(logger logging.Logger, cfg config.Config, opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unstage",
		Args:  cobra.NoArgs,
		Short: "Put back every file replaced by earlier mounts",
		RunE: logError(logger, func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(opts, cfg, logger)
			if err != nil {
				return err
			}

			n, err := ws.recoverMounts()
			if err != nil {
				return err
			}
			if n == 0 {
				logger.Info("Nothing to unstage")
				return nil
			}

			logger.Infof("Restored %d mount(s)", n)
			return nil
		}),
	}

	AddHelpFlag(cmd, "unstage")
	return cmd
}

func envSuffix(env string) string {
	if env == "" {
		return ""
	}
	return " in environment " + style.Symbol(env)
}
