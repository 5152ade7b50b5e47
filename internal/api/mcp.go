package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/gemsearch/internal/filesync"
	"github.com/kalambet/gemsearch/internal/remote"
	"github.com/kalambet/gemsearch/internal/session"
)

const defaultAskMIMEType = "application/pdf"

// DirectorySyncer mirrors a local directory into the file store.
type DirectorySyncer interface {
	SyncDirectory(ctx context.Context, root string) (*filesync.Result, error)
}

// Querier answers a question against file references.
type Querier interface {
	Query(ctx context.Context, question string, files []remote.FileRef) (string, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Files    remote.FileStore
	Syncer   DirectorySyncer
	Engine   Querier
	Sessions session.Store // optional; enables the recent sessions resource
}

// NewMCPServer creates an MCP server exposing the file store and query engine.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"gemsearch",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("gemsearch: upload local documents to Gemini and ask questions grounded in them."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_files",
			mcp.WithDescription("List the documents currently held in the Gemini file store."),
		),
		mcpListFiles(deps),
	)

	s.AddTool(
		mcp.NewTool("sync_directory",
			mcp.WithDescription("Upload every file under a local directory that the file store does not have yet, then wait for processing."),
			mcp.WithString("path", mcp.Description("Local directory to synchronize"), mcp.Required()),
		),
		mcpSyncDirectory(deps),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask a question answered from uploaded documents. Without file_uris every active file is used."),
			mcp.WithString("question", mcp.Description("The question to ask"), mcp.Required()),
			mcp.WithArray("file_uris", mcp.Description("Optional file URIs to use as context")),
		),
		mcpAsk(deps),
	)

	if deps.Sessions != nil {
		s.AddResource(
			mcp.NewResource(
				"gemsearch://sessions/recent",
				"Recent Sessions",
				mcp.WithResourceDescription("Last 10 conversation sessions"),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceRecentSessions(deps),
		)
	}

	return s
}

type fileResult struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	URI         string `json:"uri"`
	MIMEType    string `json:"mime_type"`
	State       string `json:"state"`
	Error       string `json:"error,omitempty"`
}

func toFileResults(files []remote.File) []fileResult {
	out := make([]fileResult, len(files))
	for i, f := range files {
		out[i] = fileResult{
			Name:        f.Name,
			DisplayName: f.DisplayName,
			URI:         f.URI,
			MIMEType:    f.MIMEType,
			State:       string(f.State),
			Error:       f.Error,
		}
	}
	return out
}

func mcpListFiles(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		files, err := deps.Files.List(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("listing files failed: %v", err)), nil
		}

		b, err := json.Marshal(toFileResults(files))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal files: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSyncDirectory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return mcpError("path is required"), nil
		}

		res, err := deps.Syncer.SyncDirectory(ctx, path)
		if err != nil {
			return mcpError(fmt.Sprintf("sync failed: %v", err)), nil
		}

		type failure struct {
			Path  string `json:"path"`
			Error string `json:"error"`
		}
		out := struct {
			Files    []fileResult `json:"files"`
			Reused   int          `json:"reused"`
			Uploaded int          `json:"uploaded"`
			Failures []failure    `json:"failures,omitempty"`
			Warning  string       `json:"warning,omitempty"`
		}{
			Files:    toFileResults(res.Files),
			Reused:   len(res.Reused),
			Uploaded: len(res.Uploaded),
		}
		for _, f := range res.Failures {
			out.Failures = append(out.Failures, failure{Path: f.Path, Error: f.Err.Error()})
		}
		if res.ListErr != nil {
			out.Warning = res.ListErr.Error()
		}

		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		uris := req.GetStringSlice("file_uris", nil)

		files, err := deps.Files.List(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("listing files failed: %v", err)), nil
		}

		var refs []remote.FileRef
		if len(uris) == 0 {
			for _, f := range files {
				if f.Active() {
					refs = append(refs, f.Ref())
				}
			}
		} else {
			byURI := make(map[string]remote.File, len(files))
			for _, f := range files {
				byURI[f.URI] = f
			}
			for _, uri := range uris {
				if f, ok := byURI[uri]; ok {
					refs = append(refs, f.Ref())
					continue
				}
				refs = append(refs, remote.FileRef{URI: uri, MIMEType: defaultAskMIMEType})
			}
		}

		answer, err := deps.Engine.Query(ctx, question, refs)
		if err != nil {
			return mcpError(fmt.Sprintf("query failed: %v", err)), nil
		}
		return mcpText(answer), nil
	}
}

func mcpResourceRecentSessions(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		sessions, err := deps.Sessions.ListSessions(10)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}

		type sessionSummary struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			UpdatedAt string `json:"updated_at"`
			Files     int    `json:"files"`
			Turns     int    `json:"turns"`
		}

		summaries := make([]sessionSummary, len(sessions))
		for i, s := range sessions {
			summaries[i] = sessionSummary{
				ID:        s.ID,
				Title:     s.Title,
				UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
				Files:     s.Files,
				Turns:     s.Turns,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal sessions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
