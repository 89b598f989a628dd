package commands_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/heroku/color"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"

	"github.com/stagecraft/stagecraft/internal/commands"
	"github.com/stagecraft/stagecraft/internal/config"
	"github.com/stagecraft/stagecraft/internal/logging"
	h "github.com/stagecraft/stagecraft/testhelpers"
)

func TestMountsCommand(t *testing.T) {
	color.Disable(true)
	defer color.Disable(false)
	spec.Run(t, "MountsCommand", testMountsCommand, spec.Sequential(), spec.Report(report.Terminal{}))
}

func testMountsCommand(t *testing.T, when spec.G, it spec.S) {
	var (
		root   string
		outBuf bytes.Buffer
		logger *logging.LogWithWriters
		opts   *commands.Options
	)

	it.Before(func() {
		root = newProject(t)
		outBuf.Reset()
		logger = logging.NewLogWithWriters(&outBuf, &outBuf)
		opts = &commands.Options{ProjectDir: root}
	})

	mounts := func() error {
		cmd := commands.Mounts(logger, config.Config{}, opts)
		cmd.SetArgs([]string{})
		return cmd.Execute()
	}

	it("reports an empty ledger", func() {
		h.AssertNil(t, mounts())
		h.AssertContains(t, outBuf.String(), "No mounts recorded")
	})

	it("lists recorded mounts without touching them", func() {
		stage := commands.Stage(logger, config.Config{}, opts)
		stage.SetArgs([]string{"api"})
		h.AssertNil(t, stage.Execute())
		outBuf.Reset()

		h.AssertNil(t, mounts())

		output := outBuf.String()
		h.AssertContains(t, output, "DESTINATION")
		h.AssertContains(t, output, filepath.Join("api", "config", "app.env"))
		h.AssertContains(t, output, filepath.Join("api", "Dockerfile"))
		h.AssertContains(t, output, "none")

		h.AssertEq(t, ledgerEntries(t, root), 2)
		h.AssertFileContents(t, filepath.Join(root, "api", "config", "app.env"), "DEFAULT")
		h.AssertNotContains(t, output, "preexisting")
	})
}
