package crontab

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrTool = errors.New("scheduler tool failed")

const noTableMessage = "no crontab for"

// Tool reads and replaces the user's periodic job table.
type Tool interface {
	Read(ctx context.Context) (string, error)
	Install(ctx context.Context, text string) error
}

var _ Tool = (*CommandTool)(nil)

// CommandTool drives a crontab-compatible binary.
type CommandTool struct {
	Binary string
}

// Read returns the current table. The "no crontab for <user>" failure
// reads as empty; any other failure is an error so foreign entries are
// never overwritten with an empty table.
func (c *CommandTool) Read(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, c.Binary, "-l")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && strings.Contains(strings.ToLower(msg), noTableMessage) {
			log.Debug().Str("stderr", msg).Msg("no current crontab")
			return "", nil
		}
		return "", errors.Wrapf(ErrTool, "%s -l: %v: %s", c.Binary, err, msg)
	}
	return string(out), nil
}

// Install replaces the whole table with text through a temporary file.
func (c *CommandTool) Install(ctx context.Context, text string) error {
	tmp, err := os.CreateTemp("", "twotokens-*.crontab")
	if err != nil {
		return errors.Wrap(err, "error creating temp crontab")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return errors.Wrap(err, "error writing temp crontab")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "error closing temp crontab")
	}

	cmd := exec.CommandContext(ctx, c.Binary, tmp.Name())
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(ErrTool, "%s: %v: %s", c.Binary, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
