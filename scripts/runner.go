package scripts

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Runner executes an external program and returns its stdout.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

type Config struct {
	Path        string
	Timeout     time.Duration
	Environment []string
	// Dir is the working directory; empty means the current one.
	Dir string
}

type CommandRunner struct {
	config Config
	logger *logrus.Logger
}

func NewCommandRunner(cfg Config, logger *logrus.Logger) (*CommandRunner, error) {
	if cfg.Path == "" {
		return nil, errors.New("command path is required")
	}
	if _, err := exec.LookPath(cfg.Path); err != nil {
		return nil, errors.Wrapf(err, "command %s not found", cfg.Path)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CommandRunner{config: cfg, logger: logger}, nil
}

func (r *CommandRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	const op = "CommandRunner.Run"

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	r.logger.WithFields(logrus.Fields{
		"command": r.config.Path,
		"args":    args,
	}).Debug("Executing command")

	cmd := exec.CommandContext(ctx, r.config.Path, args...)
	cmd.Dir = r.config.Dir
	cmd.Env = append(os.Environ(), r.config.Environment...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Wrap(ctxErr, err.Error())
		}
		cmdErr := &CommandError{
			Op:      op,
			Command: r.config.Path,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
		r.logger.WithError(cmdErr).WithField("duration", time.Since(start)).Error("Command execution failed")
		return nil, cmdErr
	}

	r.logger.WithFields(logrus.Fields{
		"command":  r.config.Path,
		"duration": time.Since(start),
	}).Debug("Command completed")

	return stdout.Bytes(), nil
}
