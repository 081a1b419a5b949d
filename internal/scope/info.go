package scope

import (
	"time"

	"github.com/google/uuid"
)

// Info is one row of the scope table: the sync state of one scope on one
// node.
type Info struct {
	// ID is the row key. Several ids may share a Name, e.g. the local scope
	// and the rows tracking its peers.
	ID   uuid.UUID
	Name string

	// LastTimestamp is the logical clock written by the backend at the last
	// upsert, as a YYYYMMDDHHMMSSfff decimal. Zero when never set.
	LastTimestamp int64

	// LastSync is the end of the last completed sync, whole seconds in UTC.
	// Nil when the scope never synced.
	LastSync *time.Time

	IsLocal bool
}

// lastSyncArg returns the bind value for LastSync: a UTC wall-clock time
// truncated to the second, or nil.
func (i Info) lastSyncArg() any {
	if i.LastSync == nil {
		return nil
	}
	return i.LastSync.UTC().Truncate(time.Second)
}

func (i Info) isLocalArg() int64 {
	if i.IsLocal {
		return 1
	}
	return 0
}
