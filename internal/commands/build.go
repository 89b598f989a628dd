package commands

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stagecraft/stagecraft/internal/config"
	"github.com/stagecraft/stagecraft/internal/mount"
	"github.com/stagecraft/stagecraft/internal/runner"
	"github.com/stagecraft/stagecraft/internal/style"
	"github.com/stagecraft/stagecraft/pkg/logging"
)

const (
	envImage   = "STAGECRAFT_IMAGE"
	envEnv     = "STAGECRAFT_ENV"
	envService = "STAGECRAFT_SERVICE"
)

type phase struct {
	name string
	verb string
	argv func(config.Service) []string
}

var (
	buildPhase = phase{
		name: "build",
		verb: "Building",
		argv: func(s config.Service) []string { return s.Build },
	}
	deployPhase = phase{
		name: "deploy",
		verb: "Deploying",
		argv: func(s config.Service) []string { return s.Deploy },
	}
)

func Build(logger logging.Logger, cfg config.Config, opts *Options, r runner.Runner) *cobra.Command {
	return phaseCommand(logger, cfg, opts, r, buildPhase,
		"Stage the files of a service, run its build command and restore the project",
		"stagecraft build api --tag 1.4.2",
	)
}

func Deploy(logger logging.Logger, cfg config.Config, opts *Options, r runner.Runner) *cobra.Command {
	return phaseCommand(logger, cfg, opts, r, deployPhase,
		"Stage the files of a service, run its deploy command and restore the project",
		"stagecraft deploy api --env production",
	)
}

func phaseCommand(logger logging.Logger, cfg config.Config, opts *Options, r runner.Runner, p phase, short, example string) *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:     p.name + " <service>",
		Args:    cobra.ExactArgs(1),
		Short:   short,
		Example: example,
		RunE: logError(logger, func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(opts, cfg, logger)
			if err != nil {
				return err
			}
			if _, err := ws.recoverMounts(); err != nil {
				return err
			}

			return runPhase(cmd.Context(), ws, cfg, opts, r, p, args[0], tag)
		}),
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Image tag exposed as "+envImage+" (defaults to the short git commit)")
	AddHelpFlag(cmd, p.name)
	return cmd
}

func runPhase(ctx context.Context, ws *workspace, cfg config.Config, opts *Options, r runner.Runner, p phase, svcName, tag string) error {
	svc, env, err := ws.service(svcName, opts.Environment, cfg)
	if err != nil {
		return err
	}

	argv := p.argv(svc)
	if len(argv) == 0 {
		return errors.Errorf("service %s has no %s command", style.Symbol(svcName), p.name)
	}

	if tag == "" {
		if tag, err = config.ShortCommit(ws.root); err != nil {
			return err
		}
	}
	image, err := svc.TaggedImage(tag)
	if err != nil {
		return errors.Wrapf(err, "tagging image of %s", style.Symbol(svcName))
	}

	vars := map[string]string{}
	for k, v := range svc.Env {
		vars[k] = v
	}
	vars[envImage] = image
	vars[envEnv] = env
	vars[envService] = svcName

	if err := ws.coordinator.DoMount(ctx, svc.Mounts.FileMap(), svc.Dir); err != nil {
		return errors.Wrapf(err, "staging %s", style.Symbol(svcName))
	}

	ws.logger.Infof("%s %s%s", p.verb, style.Symbol(svcName), envSuffix(env))
	runErr := r.Run(ctx, runner.Command{
		Args: argv,
		Dir:  filepath.Join(ws.root, svc.Dir),
		Env:  vars,
	})

	clearErr := ws.coordinator.ClearMounts()
	if clearErr != nil {
		clearErr = errors.Wrap(clearErr, "restoring staged files")
	}

	switch {
	case runErr != nil && clearErr != nil:
		return &mount.AggregateError{Errors: []error{runErr, clearErr}}
	case runErr != nil:
		return runErr
	case clearErr != nil:
		return clearErr
	}

	ws.logger.Infof("Finished %s of %s", p.name, style.Symbol(svcName))
	return nil
}
