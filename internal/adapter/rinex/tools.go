// Package rinex runs the external RINEX utilities: teqc to splice hourly
// files into a day and rnx2crx to Hatanaka-compress observation files.
package rinex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

const maxStderr = 2048

// Config names the external commands.
type Config struct {
	MergeCmd   string
	MergeArgs  []string
	ConvertCmd string
}

// Tools invokes the merge and conversion commands.
type Tools struct {
	cfg    Config
	logger *slog.Logger
}

// NewTools creates a Tools runner.
func NewTools(cfg Config, logger *slog.Logger) *Tools {
	return &Tools{cfg: cfg, logger: logger}
}

// Merge splices parts, in order, into dst. The merge command writes the
// daily file to stdout.
func (t *Tools) Merge(ctx context.Context, parts []string, dst string) error {
	if len(parts) == 0 {
		return errors.New("merge: no input files")
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("merge: create %s: %w", dst, err)
	}

	args := append(append([]string{}, t.cfg.MergeArgs...), parts...)
	cmd := exec.CommandContext(ctx, t.cfg.MergeCmd, args...)
	cmd.Stdout = out

	runErr := t.run(cmd)
	closeErr := out.Close()
	if runErr != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("merge %s: %w", dst, runErr)
	}
	if closeErr != nil {
		return fmt.Errorf("merge: close %s: %w", dst, closeErr)
	}
	return nil
}

// Convert Hatanaka-compresses an observation file (".yyo") and returns the
// path of the ".yyd" file written next to it.
func (t *Tools) Convert(ctx context.Context, src string) (string, error) {
	if !strings.HasSuffix(src, "o") {
		return "", fmt.Errorf("convert %s: not an observation file", src)
	}
	dst := strings.TrimSuffix(src, "o") + "d"

	cmd := exec.CommandContext(ctx, t.cfg.ConvertCmd, src)
	if err := t.run(cmd); err != nil {
		return "", fmt.Errorf("convert %s: %w", src, err)
	}
	if _, err := os.Stat(dst); err != nil {
		return "", fmt.Errorf("convert %s: expected output %s: %w", src, dst, err)
	}
	return dst, nil
}

func (t *Tools) run(cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	t.logger.Debug("external tool finished",
		"cmd", cmd.Path,
		"args", len(cmd.Args)-1,
		"duration", time.Since(start),
		"error", err,
	)

	msg := strings.TrimSpace(stderr.String())
	if len(msg) > maxStderr {
		msg = msg[len(msg)-maxStderr:]
	}
	if err != nil {
		if msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	if msg != "" {
		// teqc -warn reports recoverable problems on stderr.
		t.logger.Warn("external tool warnings", "cmd", cmd.Path, "stderr", msg)
	}
	return nil
}
