package commands

import (
	"github.com/spf13/cobra"

	"github.com/stagecraft/stagecraft/pkg/logging"
)

func Version(logger logging.Logger, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Args:  cobra.NoArgs,
		Short: "Show current 'stagecraft' version",
		RunE: logError(logger, func(cmd *cobra.Command, args []string) error {
			logger.Info(version)
			return nil
		}),
	}

	AddHelpFlag(cmd, "version")
	return cmd
}
