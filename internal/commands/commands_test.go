package commands_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stagecraft/stagecraft/internal/config"
	"github.com/stagecraft/stagecraft/internal/runner"
	h "github.com/stagecraft/stagecraft/testhelpers"
)

const projectDescriptor = `
version: "1.0"

services:
  api:
    image: registry.example.com/team/api
    mounts:
      config/app.env: envs/default/app.env
      Dockerfile: docker/api.Dockerfile
    build: [docker, build, .]
    deploy: [helm, upgrade, --install, api, ./chart]
    env:
      LOG_LEVEL: info
  worker:
    mounts:
      app.env: envs/default/app.env

environments:
  staging:
    services:
      api:
        mounts:
          config/app.env: envs/staging/app.env
`

// newProject lays out a project with an api service whose config/app.env gets replaced by mounts.
func newProject(t *testing.T) string {
	t.Helper()

	root := h.TempDir(t, "stagecraft.commands.test.")
	h.WriteFile(t, filepath.Join(root, config.ProjectFile), projectDescriptor)
	h.WriteFile(t, filepath.Join(root, "api", "config", "app.env"), "ORIGINAL")
	h.WriteFile(t, filepath.Join(root, "envs", "default", "app.env"), "DEFAULT")
	h.WriteFile(t, filepath.Join(root, "envs", "staging", "app.env"), "STAGING")
	h.WriteFile(t, filepath.Join(root, "docker", "api.Dockerfile"), "FROM scratch")
	h.AssertNil(t, os.MkdirAll(filepath.Join(root, "worker"), 0755))
	return root
}

func ledgerEntries(t *testing.T, root string) int {
	t.Helper()

	entries, err := os.ReadDir(filepath.Join(root, config.DefaultStateDir, "ledger"))
	if os.IsNotExist(err) {
		return 0
	}
	h.AssertNil(t, err)
	return len(entries)
}

type fakeRunner struct {
	calls []runner.Command
	onRun func(runner.Command) error
}

func (f *fakeRunner) Run(_ context.Context, c runner.Command) error {
	f.calls = append(f.calls, c)
	if f.onRun != nil {
		return f.onRun(c)
	}
	return nil
}
