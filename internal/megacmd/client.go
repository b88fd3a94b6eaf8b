// Package megacmd drives the MEGAcmd command-line suite. The sync
// engine talks to the remote service exclusively through the Client
// here, from session login through listing capture to download
// dispatch. Every invocation runs under a timeout and failures carry
// the exit code plus its translated meaning.
package megacmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// loginAttempts bounds the retry loop around mega-login. The MEGAcmd
// server starts on first use and may not accept commands immediately.
const loginAttempts = 4

// commandRunner executes one external command and reports its output
// and exit code. A non-nil error means the command did not run at all.
// The default goes through os/exec; tests swap in a script.
type commandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr string, exitCode int, err error)

func runCommand(ctx context.Context, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
		}
		return stdout.String(), stderr.String(), 0, err
	}
	return stdout.String(), stderr.String(), 0, nil
}

// Client invokes the MEGAcmd binaries.
type Client struct {
	timeout       time.Duration
	retryInterval time.Duration
	logger        *zap.Logger
	run           commandRunner
}

// NewClient returns a client whose individual commands are bounded by
// timeout (zero disables the bound).
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		timeout:       timeout,
		retryInterval: 500 * time.Millisecond,
		logger:        logger,
		run:           runCommand,
	}
}

// invoke runs one command and classifies the outcome: timeout, start
// failure, or non-zero exit (a *CommandError with the translated
// meaning attached).
func (c *Client) invoke(ctx context.Context, name string, args ...string) (string, error) {
	cctx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Debug("running command",
		zap.String("command", name),
		zap.Strings("args", args))

	stdout, stderr, code, err := c.run(cctx, name, args...)
	if cctx.Err() != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return stdout, fmt.Errorf("%s timed out after %s: %w", name, c.timeout, cctx.Err())
		}
		return stdout, fmt.Errorf("%s interrupted: %w", name, cctx.Err())
	}
	if err != nil {
		return stdout, fmt.Errorf("%s failed to start: %w", name, err)
	}
	if code != 0 {
		return stdout, &CommandError{
			Command:  name,
			ExitCode: code,
			Stderr:   strings.TrimSpace(stderr),
			Meaning:  c.ErrorCode(ctx, code),
		}
	}
	if stderr != "" {
		c.logger.Debug("command stderr",
			zap.String("command", name),
			zap.String("stderr", strings.TrimSpace(stderr)))
	}
	return stdout, nil
}

// Login opens a session for the public folder URL and changes to the
// remote root. Any session held from a previous run is closed first;
// MEGAcmd keeps sessions across invocations. Start failures are
// retried briefly while the server warms up; a clean non-zero exit is
// permanent (a bad link must abort, not retry).
func (c *Client) Login(ctx context.Context, url string) error {
	if err := c.Logout(ctx); err != nil {
		c.logger.Warn("initial logout failed", zap.Error(err))
	}

	attempt := func() error {
		_, err := c.invoke(ctx, "mega-login", url)
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	if err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(policy, loginAttempts-1), ctx)); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if _, err := c.invoke(ctx, "mega-cd", "/"); err != nil {
		return fmt.Errorf("cd to remote root: %w", err)
	}
	return nil
}

// List captures the listing of path: one directory level, or the full
// subtree when recursive is set. An empty path lists the remote root.
func (c *Client) List(ctx context.Context, path string, recursive bool) (string, error) {
	flag := "-l"
	if recursive {
		flag = "-lr"
	}
	if path == "" {
		path = "/"
	}
	stdout, err := c.invoke(ctx, "mega-ls", flag, path, "--time-format=ISO6081_WITH_TIME")
	if err != nil {
		return "", fmt.Errorf("list %q: %w", path, err)
	}
	return stdout, nil
}

// Fetch queues the download of remotePath into localDestDir. The
// destination directory is created here first: the plan executor
// relies on the fetch primitive to make any needed local parents and
// never creates directories itself.
func (c *Client) Fetch(ctx context.Context, remotePath, localDestDir string) error {
	if err := os.MkdirAll(localDestDir, 0755); err != nil {
		return fmt.Errorf("prepare destination %q: %w", localDestDir, err)
	}
	if _, err := c.invoke(ctx, "mega-get", "-q", remotePath, localDestDir, "--ignore-quota-warn"); err != nil {
		return fmt.Errorf("fetch %q: %w", remotePath, err)
	}
	return nil
}

// Logout closes the current session. Callers treat a failure here as
// non-fatal at run end.
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.invoke(ctx, "mega-logout"); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
