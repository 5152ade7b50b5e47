package filesync

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/gemsearch/internal/remote"
)

// WaitForActive polls each file until it leaves PROCESSING. The returned
// slice holds the last known state of every input file in input order;
// files that failed, timed out, or could not be looked up are also
// reported as failures.
func (s *Syncer) WaitForActive(ctx context.Context, files []remote.File) ([]remote.File, []Failure) {
	out := make([]remote.File, len(files))
	errs := make([]error, len(files))

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, f := range files {
		g.Go(func() error {
			out[i], errs[i] = s.waitOne(ctx, f)
			return nil
		})
	}
	g.Wait()

	var failures []Failure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, Failure{DisplayName: files[i].DisplayName, Err: err})
		}
	}
	return out, failures
}

// waitOne checks f immediately, then every PollInterval while it is
// processing. On error it returns the last known state alongside the error.
func (s *Syncer) waitOne(ctx context.Context, f remote.File) (remote.File, error) {
	start := s.now()
	s.emit(Event{Kind: EventWaiting, DisplayName: f.DisplayName, File: f})

	current := f
	for attempt := 1; ; attempt++ {
		got, err := s.store.Get(ctx, f.Name)
		if err != nil {
			if ctx.Err() != nil {
				return current, ctx.Err()
			}
			s.logFile(slog.LevelError, "status lookup failed", "name", f.Name, "error", err)
			lookupErr := &remote.LookupError{Name: f.Name, Err: err}
			s.emit(Event{Kind: EventFailed, DisplayName: f.DisplayName, File: current, Err: lookupErr})
			return current, lookupErr
		}
		current = got

		if current.State != remote.StateProcessing {
			if current.Active() {
				s.logFile(slog.LevelInfo, "file is active", "name", current.DisplayName, "polls", attempt)
				s.emit(Event{Kind: EventActive, DisplayName: current.DisplayName, File: current})
				return current, nil
			}
			procErr := &remote.ProcessingError{File: current}
			s.logFile(slog.LevelError, "file failed to process", "name", current.DisplayName, "state", current.State)
			s.emit(Event{Kind: EventFailed, DisplayName: current.DisplayName, File: current, Err: procErr})
			return current, procErr
		}

		elapsed := s.now().Sub(start)
		if (s.opts.MaxAttempts > 0 && attempt >= s.opts.MaxAttempts) ||
			(s.opts.Timeout > 0 && elapsed >= s.opts.Timeout) {
			timeoutErr := &remote.TimeoutError{Name: f.Name, Attempts: attempt, Elapsed: elapsed}
			s.logFile(slog.LevelError, "gave up waiting for file", "name", f.DisplayName, "polls", attempt, "elapsed", elapsed)
			s.emit(Event{Kind: EventFailed, DisplayName: f.DisplayName, File: current, Err: timeoutErr})
			return current, timeoutErr
		}

		wait := s.opts.PollInterval
		if s.opts.Timeout > 0 {
			if remaining := s.opts.Timeout - elapsed; remaining < wait {
				wait = remaining
			}
		}
		select {
		case <-ctx.Done():
			return current, ctx.Err()
		case <-time.After(wait):
		}
	}
}
