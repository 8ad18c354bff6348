package domain

import "errors"

// ErrRemoteNotFound is returned by remote store adapters when the named file
// does not exist. Deleting an absent file is treated as already done.
var ErrRemoteNotFound = errors.New("remote file not found")

// Retention describes what must happen to the local and remote copies of a
// group's hourly parts once it has been classified.
type Retention struct {
	ArchiveLocal bool
	DeleteRemote bool
	RemoteNames  []string
}

// Reconcile decides the retention actions for a classified group. Remote parts
// are only released once the local copy is merged or archived.
func Reconcile(g DayGroup, v Verdict) Retention {
	switch v {
	case Complete:
		return Retention{DeleteRemote: true, RemoteNames: g.RemoteNames()}
	case IncompleteAbandoned:
		return Retention{ArchiveLocal: true, DeleteRemote: true, RemoteNames: g.RemoteNames()}
	default:
		// More parts are still expected today; leave both copies alone.
		return Retention{}
	}
}
