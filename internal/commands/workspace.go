package commands

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/stagecraft/stagecraft/internal/config"
	"github.com/stagecraft/stagecraft/internal/fsutil"
	"github.com/stagecraft/stagecraft/internal/mount"
	"github.com/stagecraft/stagecraft/internal/store"
	"github.com/stagecraft/stagecraft/internal/style"
	"github.com/stagecraft/stagecraft/pkg/logging"
)

// workspace is a project opened for staging: its descriptor plus the mount state kept
// in the state directory.
type workspace struct {
	root        string
	project     config.Project
	ledger      *mount.Ledger
	coordinator *mount.Coordinator
	logger      logging.Logger
}

func openWorkspace(opts *Options, cfg config.Config, logger logging.Logger) (*workspace, error) {
	dir := opts.ProjectDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "getting working directory")
		}
		dir = wd
	}

	root, err := config.FindProject(dir)
	if err != nil {
		return nil, err
	}
	root, err = filepath.EvalSymlinks(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolving project root")
	}

	project, err := config.ReadProject(root)
	if err != nil {
		return nil, err
	}

	stateDir := cfg.StateDirFor(root)
	records, err := store.New(filepath.Join(stateDir, "ledger"))
	if err != nil {
		return nil, errors.Wrap(err, "opening mount ledger")
	}
	stash, err := store.New(filepath.Join(stateDir, "stash"))
	if err != nil {
		return nil, errors.Wrap(err, "opening stash")
	}

	ledger, err := mount.NewLedger(records)
	if err != nil {
		return nil, err
	}

	mounter := mount.NewMounter(root, ledger, stash,
		mount.WithFS(fsutil.NewOS(fsutil.WithConcurrency(cfg.CopyConcurrency))),
		mount.WithLogger(logger),
	)

	return &workspace{
		root:        root,
		project:     project,
		ledger:      ledger,
		coordinator: mount.NewCoordinator(mounter, ledger, logger),
		logger:      logger,
	}, nil
}

// recoverMounts undoes whatever an earlier run left in the ledger and reports how many
// entries it found.
func (w *workspace) recoverMounts() (int, error) {
	keys, err := w.ledger.Keys()
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := w.coordinator.Cleanup(keys); err != nil {
		return len(keys), errors.Wrap(err, "restoring files from a previous run")
	}
	return len(keys), nil
}

// service resolves the environment and returns the named service as configured for it.
func (w *workspace) service(name, explicitEnv string, cfg config.Config) (config.Service, string, error) {
	branch, err := config.CurrentBranch(w.root)
	if err != nil {
		w.logger.Debugf("Could not determine git branch: %s", err)
	}

	env := config.ResolveEnvironment(explicitEnv, branch, w.project, cfg)
	if env != "" {
		w.logger.Debugf("Using environment %s", style.Symbol(env))
	}

	svc, err := w.project.Service(name, env)
	if err != nil {
		return config.Service{}, "", err
	}
	return svc, env, nil
}
