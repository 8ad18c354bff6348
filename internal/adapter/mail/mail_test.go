package mail

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSender_Args(t *testing.T) {
	s := New(Config{Command: "mail", From: "gps@example.org", To: "ops@example.org"})
	assert.Equal(t,
		[]string{"-s", "hours2days warning", "-r", "gps@example.org", "ops@example.org"},
		s.args("hours2days warning"))

	s = New(Config{Command: "mail", To: "ops@example.org"})
	assert.Equal(t, []string{"-s", "x", "ops@example.org"}, s.args("x"))
	assert.Equal(t, "mail", s.Name())
}

func TestSender_Send(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	script := filepath.Join(dir, "mail")
	body := "#!/bin/sh\n{ echo \"$@\"; cat; } > " + out + "\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	s := New(Config{Command: script, From: "gps@example.org", To: "ops@example.org"})
	require.NoError(t, s.Send(context.Background(), "disk", "disk usage is 91%\n"))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "-s disk -r gps@example.org ops@example.org\ndisk usage is 91%\n", string(got))
}

func TestSender_SendFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	script := filepath.Join(t.TempDir(), "mail")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho 'send-mail: fatal' >&2\nexit 1\n"), 0o755))

	err := New(Config{Command: script, To: "ops@example.org"}).Send(context.Background(), "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send-mail: fatal")
}
