package command

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitdub/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// Runner executes commands with os/exec
type Runner struct{}

// New creates a new Runner
func New() *Runner {
	return &Runner{}
}

// Run executes cmd in cmd.Dir and captures stdout and stderr separately
func (r *Runner) Run(ctx context.Context, cmd *model.Command) (*model.CommandResult, error) {
	logger := ctxlog.From(ctx)
	logger.Debug("> "+cmd.String(), "dir", cmd.Dir)

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = &stdout
	c.Stderr = &stderr
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	err := c.Run()
	result := &model.CommandResult{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}
	if err != nil {
		return result, goerr.Wrap(err, "command failed",
			goerr.V("command", cmd.String()),
			goerr.V("dir", cmd.Dir),
			goerr.V("stderr", strings.TrimSpace(stderr.String())),
		)
	}

	return result, nil
}

// LookPath checks that every named program can be executed
func LookPath(names ...string) error {
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			return goerr.Wrap(err, "could not find executable", goerr.V("name", name))
		}
	}
	return nil
}
