// Package mail sends notifications through the system mail(1) command.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Config names the command and addresses.
type Config struct {
	Command string
	From    string
	To      string
}

// Sender pipes the message body into `mail -s <subject> [-r <from>] <to>`.
type Sender struct {
	cfg Config
}

// New creates a Sender.
func New(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

func (s *Sender) Name() string { return "mail" }

// Send delivers one message.
func (s *Sender) Send(ctx context.Context, subject, body string) error {
	cmd := exec.CommandContext(ctx, s.cfg.Command, s.args(subject)...)
	cmd.Stdin = strings.NewReader(body)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("mail to %s: %w: %s", s.cfg.To, err, msg)
		}
		return fmt.Errorf("mail to %s: %w", s.cfg.To, err)
	}
	return nil
}

func (s *Sender) args(subject string) []string {
	args := []string{"-s", subject}
	if s.cfg.From != "" {
		args = append(args, "-r", s.cfg.From)
	}
	return append(args, s.cfg.To)
}
