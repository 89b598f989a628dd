package commands

import (
	"bytes"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/stagecraft/stagecraft/internal/config"
	"github.com/stagecraft/stagecraft/pkg/logging"
)

func Mounts(logger logging.Logger, cfg config.Config, opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mounts",
		Args:  cobra.NoArgs,
		Short: "List the mounts recorded for the project",
		Long:  "List the mounts recorded for the project, newest first, without changing anything.",
		RunE: logError(logger, func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(opts, cfg, logger)
			if err != nil {
				return err
			}

			records, err := ws.ledger.Records()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				logger.Info("No mounts recorded")
				return nil
			}

			var buf bytes.Buffer
			table := tablewriter.NewWriter(&buf)
			table.SetHeader([]string{"Key", "Destination", "Stashed as"})
			table.SetAutoWrapText(false)
			table.SetAutoFormatHeaders(true)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetCenterSeparator("")
			table.SetColumnSeparator("")
			table.SetRowSeparator("")
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetTablePadding("  ")
			table.SetNoWhiteSpace(true)
			for _, r := range records {
				table.Append([]string{r.Key, r.Dest, r.Replaced.String()})
			}
			table.Render()

			logger.Info(buf.String())
			return nil
		}),
	}

	AddHelpFlag(cmd, "mounts")
	return cmd
}
