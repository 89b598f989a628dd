package main

import (
	"os"

	"github.com/heroku/color"
	"golang.org/x/term"

	"github.com/stagecraft/stagecraft/cmd"
	"github.com/stagecraft/stagecraft/internal/commands"
	"github.com/stagecraft/stagecraft/internal/logging"
)

func main() {
	color.Disable(!term.IsTerminal(int(os.Stdout.Fd())))

	logger := logging.NewLogWithWriters(color.Stdout(), color.Stderr())

	rootCmd, err := cmd.NewStagecraftCommand(logger)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	ctx := commands.CreateCancellableContext()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
