package commands

import (
	"github.com/spf13/cobra"

	"github.com/stagecraft/stagecraft/internal/config"
	"github.com/stagecraft/stagecraft/pkg/logging"
)

func NewConfigCommand(logger logging.Logger, cfg config.Config, cfgPath string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Interact with your local stagecraft config file",
		RunE:  nil,
	}

	cmd.AddCommand(ConfigDefaultEnvironment(logger, cfg, cfgPath))

	AddHelpFlag(cmd, "config")
	return cmd
}
