package remote

import (
	"context"
	"time"
)

// State is the provider-side processing state of an uploaded file.
type State string

const (
	StateUnspecified State = "STATE_UNSPECIFIED"
	StateProcessing  State = "PROCESSING"
	StateActive      State = "ACTIVE"
	StateFailed      State = "FAILED"
)

// File is a document held in the provider's file store.
// Name is the opaque identifier used for status lookups; DisplayName is the
// deduplication key; URI is what generation requests reference.
type File struct {
	Name           string    `json:"name"`
	DisplayName    string    `json:"display_name"`
	URI            string    `json:"uri"`
	MIMEType       string    `json:"mime_type"`
	State          State     `json:"state"`
	SizeBytes      int64     `json:"size_bytes,omitempty"`
	CreateTime     time.Time `json:"create_time,omitempty"`
	ExpirationTime time.Time `json:"expiration_time,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Active reports whether the file can be used as generation context.
func (f File) Active() bool { return f.State == StateActive }

// Ref returns the context reference for f.
func (f File) Ref() FileRef {
	return FileRef{URI: f.URI, MIMEType: f.MIMEType, DisplayName: f.DisplayName}
}

// FileRef is the part of a File a query needs.
type FileRef struct {
	URI         string `json:"uri"`
	MIMEType    string `json:"mime_type"`
	DisplayName string `json:"name,omitempty"`
}

// Part is one entry of a generation request: either a file reference or text.
type Part struct {
	Text     string
	FileURI  string
	MIMEType string
}

func TextPart(text string) Part { return Part{Text: text} }

func FilePart(uri, mimeType string) Part { return Part{FileURI: uri, MIMEType: mimeType} }

func (p Part) IsFile() bool { return p.FileURI != "" }

// FileStore is the provider's managed document storage.
type FileStore interface {
	List(ctx context.Context) ([]File, error)
	Upload(ctx context.Context, path, mimeType, displayName string) (File, error)
	Get(ctx context.Context, name string) (File, error)
}

// Generator produces text from an ordered list of parts.
type Generator interface {
	Generate(ctx context.Context, parts []Part) (string, error)
}

// Provider is a file store that can also generate content.
type Provider interface {
	FileStore
	Generator
}
