package ftp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/hours2days/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	files    map[string]string
	cwd      string
	loginErr error
	quit     bool
}

func newFakeConn(files map[string]string) *fakeConn {
	return &fakeConn{files: files}
}

func (f *fakeConn) Login(_, _ string) error { return f.loginErr }

func (f *fakeConn) ChangeDir(p string) error {
	f.cwd = p
	return nil
}

func (f *fakeConn) NameList(string) ([]string, error) {
	var names []string
	for n := range f.files {
		names = append(names, "./"+n)
	}
	return names, nil
}

func (f *fakeConn) Retr(p string) (io.ReadCloser, error) {
	content, ok := f.files[p]
	if !ok {
		return nil, &textproto.Error{Code: 550, Msg: "No such file"}
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (f *fakeConn) Stor(p string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.files[p] = string(data)
	return nil
}

func (f *fakeConn) Delete(p string) error {
	if _, ok := f.files[p]; !ok {
		return &textproto.Error{Code: 550, Msg: "No such file"}
	}
	delete(f.files, p)
	return nil
}

func (f *fakeConn) Quit() error {
	f.quit = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDialer(attempts int, dial dialFunc) *Dialer {
	d := NewDialer(Config{Host: "drop.example", Port: 21, User: "gps", DialAttempts: attempts}, discardLogger())
	d.dial = dial
	d.backoff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return d
}

func TestDialer_RetriesTransientFailures(t *testing.T) {
	conn := newFakeConn(map[string]string{})
	calls := 0
	d := testDialer(3, func(_ context.Context, addr string, _ time.Duration) (serverConn, error) {
		calls++
		assert.Equal(t, "drop.example:21", addr)
		if calls < 3 {
			return nil, errors.New("connection refused")
		}
		return conn, nil
	})

	s, err := d.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.NoError(t, s.Close())
	assert.True(t, conn.quit)
}

func TestDialer_GivesUpAfterAttempts(t *testing.T) {
	calls := 0
	d := testDialer(2, func(context.Context, string, time.Duration) (serverConn, error) {
		calls++
		return nil, errors.New("timeout")
	})

	_, err := d.Open(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "drop.example:21")
}

func TestDialer_BadCredentialsNotRetried(t *testing.T) {
	calls := 0
	d := testDialer(5, func(context.Context, string, time.Duration) (serverConn, error) {
		calls++
		c := newFakeConn(nil)
		c.loginErr = &textproto.Error{Code: 530, Msg: "Login incorrect"}
		return c, nil
	})

	_, err := d.Open(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestSession_Operations(t *testing.T) {
	conn := newFakeConn(map[string]string{"ABCD001a.23o.gz": "hour-a"})
	s := &Session{conn: conn, logger: discardLogger()}
	ctx := context.Background()

	require.NoError(t, s.ChangeDir(ctx, "/gps/2023"))
	assert.Equal(t, "/gps/2023", conn.cwd)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ABCD001a.23o.gz"}, names)

	var buf bytes.Buffer
	require.NoError(t, s.Fetch(ctx, "ABCD001a.23o.gz", &buf))
	assert.Equal(t, "hour-a", buf.String())

	require.NoError(t, s.Store(ctx, "ABCD0010.23d.gz", strings.NewReader("daily")))
	assert.Equal(t, "daily", conn.files["ABCD0010.23d.gz"])

	require.NoError(t, s.Delete(ctx, "ABCD001a.23o.gz"))
	err = s.Delete(ctx, "ABCD001a.23o.gz")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRemoteNotFound)
}

func TestSession_HonoursCancelledContext(t *testing.T) {
	s := &Session{conn: newFakeConn(map[string]string{}), logger: discardLogger()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
