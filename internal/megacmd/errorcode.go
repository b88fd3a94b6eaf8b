package megacmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// CommandError reports a MEGAcmd invocation that ran and exited
// non-zero. Meaning carries the mega-errorcode translation when the
// helper could provide one.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Meaning  string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	if e.Meaning != "" {
		msg += ": " + e.Meaning
	}
	if e.Stderr != "" {
		msg += " (" + e.Stderr + ")"
	}
	return msg
}

// ErrorCode translates a MEGAcmd exit code into its human-readable
// meaning via the mega-errorcode helper. Best effort: an empty string
// means the helper itself was unavailable or failed.
func (c *Client) ErrorCode(ctx context.Context, code int) string {
	cctx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	stdout, _, exit, err := c.run(cctx, "mega-errorcode", strconv.Itoa(code))
	if err != nil || exit != 0 {
		return ""
	}
	return strings.TrimSpace(stdout)
}
