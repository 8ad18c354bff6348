// Package ftp implements the remote drop-server session over FTP.
package ftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/textproto"
	"path"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/hours2days/internal/domain"
	jftp "github.com/jlaffaye/ftp"
)

// Config holds connection settings for the drop server.
type Config struct {
	Host         string
	Port         int
	User         string
	Password     string
	Timeout      time.Duration
	DialAttempts int
}

// serverConn is the subset of *jftp.ServerConn used by a Session.
type serverConn interface {
	Login(user, password string) error
	ChangeDir(path string) error
	NameList(path string) ([]string, error)
	Retr(path string) (io.ReadCloser, error)
	Stor(path string, r io.Reader) error
	Delete(path string) error
	Quit() error
}

// jlaffayeConn adapts Retr to return a plain io.ReadCloser.
type jlaffayeConn struct {
	*jftp.ServerConn
}

func (c jlaffayeConn) Retr(p string) (io.ReadCloser, error) {
	return c.ServerConn.Retr(p)
}

type dialFunc func(ctx context.Context, addr string, timeout time.Duration) (serverConn, error)

func dialJlaffaye(ctx context.Context, addr string, timeout time.Duration) (serverConn, error) {
	c, err := jftp.Dial(addr, jftp.DialWithTimeout(timeout), jftp.DialWithContext(ctx))
	if err != nil {
		return nil, err
	}
	return jlaffayeConn{ServerConn: c}, nil
}

// Dialer opens authenticated sessions, retrying transient failures with
// exponential backoff.
type Dialer struct {
	cfg     Config
	logger  *slog.Logger
	dial    dialFunc
	backoff func() backoff.BackOff
}

// NewDialer creates a Dialer for the configured server.
func NewDialer(cfg Config, logger *slog.Logger) *Dialer {
	return &Dialer{
		cfg:    cfg,
		logger: logger,
		dial:   dialJlaffaye,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 15 * time.Second
			return b
		},
	}
}

// Open dials and logs in. Authentication failures are not retried.
func (d *Dialer) Open(ctx context.Context) (*Session, error) {
	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	attempts := max(d.cfg.DialAttempts, 1)

	var conn serverConn
	op := func() error {
		c, err := d.dial(ctx, addr, d.cfg.Timeout)
		if err != nil {
			return fmt.Errorf("dial %s: %w", addr, err)
		}
		if err := c.Login(d.cfg.User, d.cfg.Password); err != nil {
			_ = c.Quit()
			err = fmt.Errorf("login %s as %q: %w", addr, d.cfg.User, err)
			if statusCode(err) == jftp.StatusNotLoggedIn {
				return backoff.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(d.backoff(), uint64(attempts-1)), ctx)
	notify := func(err error, wait time.Duration) {
		d.logger.Warn("ftp connect failed, retrying", "addr", addr, "error", err, "wait", wait)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}

	d.logger.Info("ftp session opened", "addr", addr, "user", d.cfg.User)
	return &Session{conn: conn, logger: d.logger}, nil
}

// Session is one logged-in connection, reused for the whole run.
type Session struct {
	conn   serverConn
	logger *slog.Logger
}

// ChangeDir navigates to dir on the server.
func (s *Session) ChangeDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.conn.ChangeDir(dir); err != nil {
		return fmt.Errorf("cwd %s: %w", dir, err)
	}
	return nil
}

// List returns the base names of the files in the current directory.
func (s *Session) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := s.conn.NameList("")
	if err != nil {
		return nil, fmt.Errorf("nlst: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, path.Base(e))
	}
	return names, nil
}

// Fetch downloads name into w.
func (s *Session) Fetch(ctx context.Context, name string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, err := s.conn.Retr(name)
	if err != nil {
		return fmt.Errorf("retr %s: %w", name, err)
	}
	_, copyErr := io.Copy(w, r)
	closeErr := r.Close()
	if copyErr != nil {
		return fmt.Errorf("retr %s: %w", name, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("retr %s: %w", name, closeErr)
	}
	return nil
}

// Store uploads r under name in the current directory.
func (s *Session) Store(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.conn.Stor(name, r); err != nil {
		return fmt.Errorf("stor %s: %w", name, err)
	}
	return nil
}

// Delete removes name. A missing file yields an error wrapping
// domain.ErrRemoteNotFound.
func (s *Session) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.conn.Delete(name)
	if err == nil {
		return nil
	}
	if statusCode(err) == jftp.StatusFileUnavailable {
		return fmt.Errorf("dele %s: %w", name, domain.ErrRemoteNotFound)
	}
	return fmt.Errorf("dele %s: %w", name, err)
}

// Close ends the session.
func (s *Session) Close() error {
	if err := s.conn.Quit(); err != nil {
		return fmt.Errorf("quit: %w", err)
	}
	s.logger.Info("ftp session closed")
	return nil
}

func statusCode(err error) int {
	var tp *textproto.Error
	if errors.As(err, &tp) {
		return tp.Code
	}
	return 0
}
