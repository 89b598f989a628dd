// Package runner starts the external tools that build and deploy services.
package runner

import (
	"context"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/stagecraft/stagecraft/internal/style"
	"github.com/stagecraft/stagecraft/pkg/logging"
)

// Command is an argv run in Dir. Env is added to the inherited environment, and
// $VAR references in Args are expanded against it.
type Command struct {
	Args []string
	Dir  string
	Env  map[string]string
}

func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// Exec runs commands as child processes, streaming their output to the logger.
type Exec struct {
	logger logging.Logger
}

func NewExec(logger logging.Logger) *Exec {
	return &Exec{logger: logger}
}

func (e *Exec) Run(ctx context.Context, c Command) error {
	if len(c.Args) == 0 {
		return errors.New("no command configured")
	}

	lookup := func(key string) string {
		if v, ok := c.Env[key]; ok {
			return v
		}
		return os.Getenv(key)
	}
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		args[i] = os.Expand(arg, lookup)
	}

	e.logger.Debugf("Running %s in %s", style.Symbol(strings.Join(args, " ")), style.Symbol(c.Dir))

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), envSlice(c.Env)...)
	cmd.Stdout = logging.GetWriterForLevel(e.logger, logging.InfoLevel)
	cmd.Stderr = logging.GetWriterForLevel(e.logger, logging.WarnLevel)

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "running %s", style.Symbol(c.String()))
	}
	return nil
}

func envSlice(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
