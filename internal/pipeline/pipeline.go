// Package pipeline runs one hourly-to-daily merge pass over the drop server:
// list, classify, fetch, merge, upload and release remote parts.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/couchcryptid/hours2days/internal/domain"
)

// RemoteSession is an open connection to the drop server.
type RemoteSession interface {
	ChangeDir(ctx context.Context, dir string) error
	List(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, name string, w io.Writer) error
	Store(ctx context.Context, name string, r io.Reader) error
	Delete(ctx context.Context, name string) error
	Close() error
}

// SessionOpener dials and authenticates a RemoteSession.
type SessionOpener interface {
	Open(ctx context.Context) (RemoteSession, error)
}

// OpenerFunc adapts a function to SessionOpener.
type OpenerFunc func(ctx context.Context) (RemoteSession, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context) (RemoteSession, error) {
	return f(ctx)
}

// LocalStore is the local work directory and archive. Paths are relative to
// its root.
type LocalStore interface {
	Path(rel ...string) string
	Exists(rel string) bool
	Create(rel string) (io.WriteCloser, error)
	Open(rel string) (io.ReadCloser, error)
	Copy(src, dst string) error
	Move(src, dst string) error
	Remove(rel string) error
	Glob(dir, pattern string) ([]string, error)
	RemoveMatching(dir, pattern string) (int, error)
	Compress(rel string) (string, error)
	Decompress(rel string) (string, error)
}

// RinexTools wraps the external merge and conversion programs. Paths are
// absolute.
type RinexTools interface {
	Merge(ctx context.Context, parts []string, dst string) error
	Convert(ctx context.Context, src string) (string, error)
}

// DiskSampler reports local disk utilisation.
type DiskSampler interface {
	Sample(ctx context.Context) (domain.DiskUsage, error)
}

// Failure stages recorded in the run report.
const (
	StageFetch   = "fetch"
	StageMerge   = "merge"
	StageUpload  = "upload"
	StageArchive = "archive"
	StageDelete  = "delete"
)

// TransportError wraps a failed remote operation.
type TransportError struct {
	Op   string
	Name string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MergeError reports that a group could not be turned into a daily file.
// Nothing was uploaded and the remote parts must be kept.
type MergeError struct {
	Group domain.GroupKey
	Step  string // parts, merge, convert, compress
	Err   error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge %s: %s: %v", e.Group, e.Step, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// UploadError reports that a daily file was produced but could not be stored
// remotely. The file is kept in the quarantine directory.
type UploadError struct {
	Daily       string
	Quarantined string
	Err         error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s (kept at %s): %v", e.Daily, e.Quarantined, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
