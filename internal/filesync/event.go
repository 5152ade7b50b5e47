package filesync

import "github.com/kalambet/gemsearch/internal/remote"

// EventKind names a per-file sync step.
type EventKind int

const (
	EventReused EventKind = iota
	EventUploading
	EventUploaded
	EventUploadFailed
	EventWaiting
	EventActive
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventReused:
		return "reused"
	case EventUploading:
		return "uploading"
	case EventUploaded:
		return "uploaded"
	case EventUploadFailed:
		return "upload_failed"
	case EventWaiting:
		return "waiting"
	case EventActive:
		return "active"
	case EventFailed:
		return "failed"
	}
	return "unknown"
}

// Event reports progress on a single file. Events are delivered one at a
// time even when several files are in flight.
type Event struct {
	Kind        EventKind
	Path        string
	DisplayName string
	File        remote.File
	Err         error
}
