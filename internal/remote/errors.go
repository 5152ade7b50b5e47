package remote

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is wrapped by LookupError when the provider no longer knows a file.
var ErrNotFound = errors.New("file not found")

// ScanError reports a local filesystem failure while walking a directory.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string { return fmt.Sprintf("scanning %s: %v", e.Path, e.Err) }
func (e *ScanError) Unwrap() error { return e.Err }

// ListError reports a failure to list remote files.
type ListError struct {
	Err error
}

func (e *ListError) Error() string { return fmt.Sprintf("listing remote files: %v", e.Err) }
func (e *ListError) Unwrap() error { return e.Err }

// UploadError reports a failed upload of a single local file.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string { return fmt.Sprintf("uploading %s: %v", e.Path, e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

// LookupError reports a failed status fetch for a remote file.
type LookupError struct {
	Name string
	Err  error
}

func (e *LookupError) Error() string { return fmt.Sprintf("looking up %s: %v", e.Name, e.Err) }
func (e *LookupError) Unwrap() error { return e.Err }

// ProcessingError reports a remote file that left PROCESSING in a state other
// than ACTIVE.
type ProcessingError struct {
	File File
}

func (e *ProcessingError) Error() string {
	msg := fmt.Sprintf("file %s failed to process: %s", e.File.DisplayName, e.File.State)
	if e.File.Error != "" {
		msg += " (" + e.File.Error + ")"
	}
	return msg
}

// TimeoutError reports a file still PROCESSING when the wait budget ran out.
type TimeoutError struct {
	Name     string
	Attempts int
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("file %s still processing after %d polls (%s)", e.Name, e.Attempts, e.Elapsed.Round(time.Millisecond))
}

// GenerationError reports a failed content generation call.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generating content: %v", e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }
