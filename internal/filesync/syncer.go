// Package filesync mirrors a local directory into the provider's file store
// and waits for freshly uploaded files to finish processing.
package filesync

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/gemsearch/internal/remote"
	"github.com/kalambet/gemsearch/internal/scan"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultMIMEType     = "text/plain"
)

// Options configure a Syncer.
type Options struct {
	// PollInterval is the pause between status checks of a processing file.
	PollInterval time.Duration
	// Timeout bounds the wait for a single file. Zero means no bound.
	Timeout time.Duration
	// MaxAttempts bounds the status checks for a single file. Zero means no bound.
	MaxAttempts int
	// Concurrency is the number of uploads or polls in flight. Values below
	// one mean one.
	Concurrency int

	DefaultMIMEType string
	IgnoreFile      string
	Include         []string

	Logger *slog.Logger
	// Progress, when set, receives an event for every per-file step.
	Progress func(Event)
}

// Failure is a per-file problem that did not abort the sync.
type Failure struct {
	Path        string
	DisplayName string
	Err         error
}

func (f Failure) Error() string { return f.Err.Error() }

// Result is the outcome of one SyncDirectory pass.
type Result struct {
	// Files is every remote file available for the directory, in scan order:
	// reused ones and fresh uploads, whatever their final state.
	Files    []remote.File
	Reused   []remote.File
	Uploaded []remote.File
	Failures []Failure
	// ListErr is set when the remote listing failed and the sync fell back to
	// uploading everything.
	ListErr error
}

// Refs returns the context references of r.Files in order.
func (r *Result) Refs() []remote.FileRef {
	refs := make([]remote.FileRef, 0, len(r.Files))
	for _, f := range r.Files {
		refs = append(refs, f.Ref())
	}
	return refs
}

// Active returns the files in r.Files that finished processing.
func (r *Result) Active() []remote.File {
	var out []remote.File
	for _, f := range r.Files {
		if f.Active() {
			out = append(out, f)
		}
	}
	return out
}

// Syncer uploads local files that the remote store does not know yet.
type Syncer struct {
	store  remote.FileStore
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// New creates a Syncer over store. Zero option values take defaults.
func New(store remote.FileStore, opts Options) *Syncer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.DefaultMIMEType == "" {
		opts.DefaultMIMEType = DefaultMIMEType
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		store:  store,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

type planKind int

const (
	planReuse planKind = iota
	planUpload
)

type planEntry struct {
	path        string
	displayName string
	mimeType    string
	kind        planKind
	existing    remote.File

	uploaded remote.File
	err      error
}

// SyncDirectory makes every file under root available remotely. Scan errors
// and context cancellation are returned; everything else is recorded per
// file in the Result.
func (s *Syncer) SyncDirectory(ctx context.Context, root string) (*Result, error) {
	paths, err := scan.Scan(root, scan.Options{IgnoreFile: s.opts.IgnoreFile, Include: s.opts.Include})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("scanned directory", "root", root, "files", len(paths))

	res := &Result{}
	existing, err := s.store.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res.ListErr = &remote.ListError{Err: err}
		s.logger.Warn("listing remote files failed, uploading everything", "error", err)
		existing = nil
	}

	byName := make(map[string]remote.File, len(existing))
	for _, f := range existing {
		if _, ok := byName[f.DisplayName]; !ok {
			byName[f.DisplayName] = f
		}
	}

	plan := s.plan(paths, byName)
	s.uploadAll(ctx, plan)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pathByName := make(map[string]string)
	for _, e := range plan {
		switch e.kind {
		case planReuse:
			res.Files = append(res.Files, e.existing)
			res.Reused = append(res.Reused, e.existing)
		case planUpload:
			if e.err != nil {
				res.Failures = append(res.Failures, Failure{
					Path:        e.path,
					DisplayName: e.displayName,
					Err:         &remote.UploadError{Path: e.path, Err: e.err},
				})
				continue
			}
			res.Files = append(res.Files, e.uploaded)
			res.Uploaded = append(res.Uploaded, e.uploaded)
			pathByName[e.uploaded.Name] = e.path
		}
	}

	if len(res.Uploaded) == 0 {
		return res, nil
	}

	final, failures := s.WaitForActive(ctx, res.Uploaded)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	latest := make(map[string]remote.File, len(final))
	for _, f := range final {
		latest[f.Name] = f
	}
	for i, f := range res.Files {
		if u, ok := latest[f.Name]; ok {
			res.Files[i] = u
		}
	}
	res.Uploaded = final
	for _, fl := range failures {
		fl.Path = pathByName[nameOf(fl)]
		res.Failures = append(res.Failures, fl)
	}
	return res, nil
}

func nameOf(f Failure) string {
	var lookup *remote.LookupError
	if errors.As(f.Err, &lookup) {
		return lookup.Name
	}
	var processing *remote.ProcessingError
	if errors.As(f.Err, &processing) {
		return processing.File.Name
	}
	var timeout *remote.TimeoutError
	if errors.As(f.Err, &timeout) {
		return timeout.Name
	}
	return ""
}

// plan decides, in scan order, what happens to each local path. Only the
// remote listing decides reuse: two local files sharing a base name are both
// uploaded.
func (s *Syncer) plan(paths []string, byName map[string]remote.File) []*planEntry {
	seen := make(map[string]bool, len(paths))
	plan := make([]*planEntry, 0, len(paths))
	for _, p := range paths {
		e := &planEntry{
			path:        p,
			displayName: filepath.Base(p),
			mimeType:    scan.MIMEType(p, s.opts.DefaultMIMEType),
		}
		if f, ok := byName[e.displayName]; ok {
			e.kind = planReuse
			e.existing = f
			s.logFile(slog.LevelInfo, "found existing file", "name", e.displayName, "uri", f.URI)
			s.emit(Event{Kind: EventReused, Path: p, DisplayName: e.displayName, File: f})
		} else {
			e.kind = planUpload
			if seen[e.displayName] {
				s.logger.Warn("display name already used in this directory", "path", p, "name", e.displayName)
			}
		}
		seen[e.displayName] = true
		plan = append(plan, e)
	}
	return plan
}

func (s *Syncer) uploadAll(ctx context.Context, plan []*planEntry) {
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for _, e := range plan {
		if e.kind != planUpload {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				e.err = ctx.Err()
				return nil
			}
			s.emit(Event{Kind: EventUploading, Path: e.path, DisplayName: e.displayName})
			f, err := s.store.Upload(ctx, e.path, e.mimeType, e.displayName)
			if err != nil {
				e.err = err
				s.logFile(slog.LevelError, "upload failed", "path", e.path, "error", err)
				s.emit(Event{Kind: EventUploadFailed, Path: e.path, DisplayName: e.displayName, Err: err})
				return nil
			}
			e.uploaded = f
			s.logFile(slog.LevelInfo, "uploaded file", "name", e.displayName, "uri", f.URI)
			s.emit(Event{Kind: EventUploaded, Path: e.path, DisplayName: e.displayName, File: f})
			return nil
		})
	}
	g.Wait()
}

func (s *Syncer) emit(ev Event) {
	if s.opts.Progress == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.Progress(ev)
}

// logFile records a per-file step. A Progress callback already reports these
// to the user, so they drop to debug when one is set.
func (s *Syncer) logFile(level slog.Level, msg string, args ...any) {
	if s.opts.Progress != nil {
		level = slog.LevelDebug
	}
	s.logger.Log(context.Background(), level, msg, args...)
}
