// Package query asks the generation model questions about remote files.
package query

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/gemsearch/internal/remote"
)

// ErrEmptyQuestion is returned when the question is blank.
var ErrEmptyQuestion = errors.New("question must not be empty")

// Engine builds generation requests from file references and a question.
type Engine struct {
	gen    remote.Generator
	logger *slog.Logger
}

// New returns an Engine that sends requests to gen.
func New(gen remote.Generator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{gen: gen, logger: logger}
}

// BuildParts returns one file part per ref, in order, followed by the
// question as text.
func BuildParts(question string, files []remote.FileRef) []remote.Part {
	parts := make([]remote.Part, 0, len(files)+1)
	for _, f := range files {
		parts = append(parts, remote.FilePart(f.URI, f.MIMEType))
	}
	return append(parts, remote.TextPart(question))
}

// Query asks question with files as context. Provider failures are wrapped
// in *remote.GenerationError and never retried here.
func (e *Engine) Query(ctx context.Context, question string, files []remote.FileRef) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}

	start := time.Now()
	answer, err := e.gen.Generate(ctx, BuildParts(question, files))
	if err != nil {
		e.logger.Error("generation failed", "files", len(files), "error", err)
		return "", &remote.GenerationError{Err: err}
	}
	e.logger.Debug("generation complete", "files", len(files), "duration", time.Since(start))
	return answer, nil
}
