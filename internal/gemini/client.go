// Package gemini adapts the Gemini API SDK to the remote file store and
// generator interfaces.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/kalambet/gemsearch/internal/remote"
)

const (
	DefaultModel = "gemini-2.0-flash"
	listPageSize = 100
)

// Client talks to the Gemini Files and Models APIs.
type Client struct {
	genai *genai.Client
	model string
}

var (
	_ remote.FileStore = (*Client)(nil)
	_ remote.Generator = (*Client)(nil)
)

// Options configure a Client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewClient creates a client authenticated with opts.APIKey.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(opts.BaseURL, "/") + "/"}
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{genai: gc, model: model}, nil
}

// Model returns the generation model name.
func (c *Client) Model() string { return c.model }

// List returns every file in the store, following pagination to the end.
func (c *Client) List(ctx context.Context) ([]remote.File, error) {
	var page genai.Page[genai.File]
	err := withRetry(ctx, func() error {
		var err error
		page, err = c.genai.Files.List(ctx, &genai.ListFilesConfig{PageSize: listPageSize})
		return err
	})
	if err != nil {
		return nil, err
	}

	var files []remote.File
	for {
		for _, f := range page.Items {
			files = append(files, fromGenai(f))
		}
		next, err := nextPage(ctx, page)
		if errors.Is(err, genai.ErrPageDone) {
			return files, nil
		}
		if err != nil {
			return nil, err
		}
		page = next
	}
}

// nextPage fetches the page after p, retrying on rate limits. p is never
// replaced by a failed page, so a retry asks for the same token again.
func nextPage[T any](ctx context.Context, p genai.Page[T]) (genai.Page[T], error) {
	var next genai.Page[T]
	err := withRetry(ctx, func() error {
		got, err := p.Next(ctx)
		if err != nil {
			return err
		}
		next = got
		return nil
	})
	return next, err
}

// Upload sends the file at path to the store under displayName.
func (c *Client) Upload(ctx context.Context, path, mimeType, displayName string) (remote.File, error) {
	var f *genai.File
	err := withRetry(ctx, func() error {
		var err error
		f, err = c.genai.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
			MIMEType:    mimeType,
			DisplayName: displayName,
		})
		return err
	})
	if err != nil {
		return remote.File{}, err
	}
	return fromGenai(f), nil
}

// Get fetches the current metadata of the file identified by name.
func (c *Client) Get(ctx context.Context, name string) (remote.File, error) {
	var f *genai.File
	err := withRetry(ctx, func() error {
		var err error
		f, err = c.genai.Files.Get(ctx, name, nil)
		return err
	})
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return remote.File{}, fmt.Errorf("%w: %w", remote.ErrNotFound, err)
		}
		return remote.File{}, err
	}
	return fromGenai(f), nil
}

// Generate sends parts as a single user turn and returns the response text.
func (c *Client) Generate(ctx context.Context, parts []remote.Part) (string, error) {
	contents := []*genai.Content{genai.NewContentFromParts(toGenaiParts(parts), genai.RoleUser)}

	var resp *genai.GenerateContentResponse
	err := withRetry(ctx, func() error {
		var err error
		resp, err = c.genai.Models.GenerateContent(ctx, c.model, contents, nil)
		return err
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Model describes a model available to the credential.
type Model struct {
	Name        string
	DisplayName string
	Description string
	InputLimit  int32
	OutputLimit int32
}

// Models lists the models that support content generation.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	var page genai.Page[genai.Model]
	err := withRetry(ctx, func() error {
		var err error
		page, err = c.genai.Models.List(ctx, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	var models []Model
	for {
		for _, m := range page.Items {
			if !supportsGenerate(m.SupportedActions) {
				continue
			}
			models = append(models, Model{
				Name:        m.Name,
				DisplayName: m.DisplayName,
				Description: m.Description,
				InputLimit:  m.InputTokenLimit,
				OutputLimit: m.OutputTokenLimit,
			})
		}
		next, err := nextPage(ctx, page)
		if errors.Is(err, genai.ErrPageDone) {
			return models, nil
		}
		if err != nil {
			return nil, err
		}
		page = next
	}
}

func supportsGenerate(actions []string) bool {
	for _, a := range actions {
		if a == "generateContent" {
			return true
		}
	}
	return false
}

func toGenaiParts(parts []remote.Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsFile() {
			out = append(out, genai.NewPartFromURI(p.FileURI, p.MIMEType))
			continue
		}
		out = append(out, genai.NewPartFromText(p.Text))
	}
	return out
}

func fromGenai(f *genai.File) remote.File {
	if f == nil {
		return remote.File{}
	}
	out := remote.File{
		Name:           f.Name,
		DisplayName:    f.DisplayName,
		URI:            f.URI,
		MIMEType:       f.MIMEType,
		State:          remote.State(f.State),
		CreateTime:     f.CreateTime,
		ExpirationTime: f.ExpirationTime,
	}
	if out.State == "" {
		out.State = remote.StateUnspecified
	}
	if f.SizeBytes != nil {
		out.SizeBytes = *f.SizeBytes
	}
	if f.Error != nil {
		out.Error = f.Error.Message
	}
	return out
}
