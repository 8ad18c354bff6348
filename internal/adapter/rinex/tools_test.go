package rinex

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func testTools(cfg Config) *Tools {
	return NewTools(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return p
}

func TestTools_MergeConcatenatesInOrder(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "ABCD001a.23n")
	b := filepath.Join(dir, "ABCD001b.23n")
	require.NoError(t, os.WriteFile(a, []byte("hour a\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("hour b\n"), 0o644))

	tools := testTools(Config{MergeCmd: "cat"})
	dst := filepath.Join(dir, "ABCD0010.23n")
	require.NoError(t, tools.Merge(context.Background(), []string{a, b}, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hour a\nhour b\n", string(data))
}

func TestTools_MergeFailureRemovesOutput(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	script := writeScript(t, dir, "teqc", `echo "teqc: bad header" >&2; exit 3`)

	tools := testTools(Config{MergeCmd: script, MergeArgs: []string{"-warn", "-phc"}})
	dst := filepath.Join(dir, "ABCD0010.23o")
	err := tools.Merge(context.Background(), []string{filepath.Join(dir, "x")}, dst)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad header")
	assert.NoFileExists(t, dst)
}

func TestTools_MergeRequiresInput(t *testing.T) {
	tools := testTools(Config{MergeCmd: "cat"})
	require.Error(t, tools.Merge(context.Background(), nil, filepath.Join(t.TempDir(), "out")))
}

func TestTools_Convert(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	script := writeScript(t, dir, "rnx2crx", `cp "$1" "${1%o}d"`)
	src := filepath.Join(dir, "ABCD0010.23o")
	require.NoError(t, os.WriteFile(src, []byte("obs"), 0o644))

	tools := testTools(Config{ConvertCmd: script})
	dst, err := tools.Convert(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ABCD0010.23d"), dst)
	assert.FileExists(t, dst)
}

func TestTools_ConvertMissingOutput(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	script := writeScript(t, dir, "rnx2crx", `exit 0`)
	src := filepath.Join(dir, "ABCD0010.23o")
	require.NoError(t, os.WriteFile(src, []byte("obs"), 0o644))

	_, err := testTools(Config{ConvertCmd: script}).Convert(context.Background(), src)
	require.Error(t, err)
}

func TestTools_ConvertRejectsNavigation(t *testing.T) {
	_, err := testTools(Config{ConvertCmd: "true"}).Convert(context.Background(), "ABCD0010.23n")
	require.Error(t, err)
}
