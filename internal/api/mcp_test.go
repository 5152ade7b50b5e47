package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/gemsearch/internal/filesync"
	"github.com/kalambet/gemsearch/internal/remote"
	"github.com/kalambet/gemsearch/internal/session"
	"github.com/kalambet/gemsearch/internal/storage"
)

// --- mocks ---

type mockFileStore struct {
	files   []remote.File
	listErr error
}

func (m *mockFileStore) List(context.Context) ([]remote.File, error) { return m.files, m.listErr }

func (m *mockFileStore) Upload(context.Context, string, string, string) (remote.File, error) {
	return remote.File{}, errors.New("not used")
}

func (m *mockFileStore) Get(context.Context, string) (remote.File, error) {
	return remote.File{}, errors.New("not used")
}

type mockSyncer struct {
	result *filesync.Result
	err    error
	root   string
}

func (m *mockSyncer) SyncDirectory(_ context.Context, root string) (*filesync.Result, error) {
	m.root = root
	return m.result, m.err
}

type mockQuerier struct {
	mu       sync.Mutex
	answer   string
	err      error
	lastRefs []remote.FileRef
}

func (m *mockQuerier) Query(_ context.Context, _ string, files []remote.FileRef) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRefs = files
	return m.answer, m.err
}

// --- helpers ---

func newTestMCPDeps() MCPDeps {
	return MCPDeps{
		Files: &mockFileStore{files: []remote.File{
			{Name: "files/a", DisplayName: "a.pdf", URI: "uri-a", MIMEType: "application/pdf", State: remote.StateActive},
			{Name: "files/b", DisplayName: "b.txt", URI: "uri-b", MIMEType: "text/plain", State: remote.StateFailed},
			{Name: "files/c", DisplayName: "c.md", URI: "uri-c", MIMEType: "text/markdown", State: remote.StateActive},
		}},
		Syncer: &mockSyncer{result: &filesync.Result{}},
		Engine: &mockQuerier{answer: "42"},
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// --- tests ---

func TestMCPTool_ListFiles(t *testing.T) {
	deps := newTestMCPDeps()
	result, err := mcpListFiles(deps)(context.Background(), makeCallToolRequest("list_files", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var files []fileResult
	if err := json.Unmarshal([]byte(toolText(t, result)), &files); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}
	if files[1].State != "FAILED" {
		t.Errorf("files[1].State = %q, want FAILED", files[1].State)
	}
}

func TestMCPTool_ListFiles_Error(t *testing.T) {
	deps := newTestMCPDeps()
	deps.Files = &mockFileStore{listErr: errors.New("unauthorized")}

	result, _ := mcpListFiles(deps)(context.Background(), makeCallToolRequest("list_files", nil))
	if !result.IsError {
		t.Fatal("expected error result")
	}
}

func TestMCPTool_SyncDirectory(t *testing.T) {
	deps := newTestMCPDeps()
	syncer := &mockSyncer{result: &filesync.Result{
		Files:    []remote.File{{Name: "files/a", DisplayName: "a.pdf", State: remote.StateActive}},
		Uploaded: []remote.File{{Name: "files/a"}},
		Failures: []filesync.Failure{{Path: "/docs/b.pdf", Err: errors.New("quota")}},
	}}
	deps.Syncer = syncer

	result, err := mcpSyncDirectory(deps)(context.Background(), makeCallToolRequest("sync_directory", map[string]interface{}{
		"path": "/docs",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	if syncer.root != "/docs" {
		t.Errorf("root = %q, want /docs", syncer.root)
	}
	text := toolText(t, result)
	if !strings.Contains(text, `"uploaded":1`) || !strings.Contains(text, "quota") {
		t.Errorf("result = %s", text)
	}
}

func TestMCPTool_SyncDirectory_MissingPath(t *testing.T) {
	result, _ := mcpSyncDirectory(newTestMCPDeps())(context.Background(), makeCallToolRequest("sync_directory", nil))
	if !result.IsError {
		t.Fatal("expected error result")
	}
}

func TestMCPTool_SyncDirectory_ScanError(t *testing.T) {
	deps := newTestMCPDeps()
	deps.Syncer = &mockSyncer{err: &remote.ScanError{Path: "/nope", Err: errors.New("not a directory")}}

	result, _ := mcpSyncDirectory(deps)(context.Background(), makeCallToolRequest("sync_directory", map[string]interface{}{"path": "/nope"}))
	if !result.IsError {
		t.Fatal("expected error result")
	}
}

func TestMCPTool_Ask_DefaultsToActiveFiles(t *testing.T) {
	deps := newTestMCPDeps()
	q := deps.Engine.(*mockQuerier)

	result, err := mcpAsk(deps)(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
		"question": "what?",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toolText(t, result) != "42" {
		t.Errorf("answer = %q, want 42", toolText(t, result))
	}
	if len(q.lastRefs) != 2 || q.lastRefs[0].URI != "uri-a" || q.lastRefs[1].URI != "uri-c" {
		t.Errorf("refs = %+v, want active files a and c", q.lastRefs)
	}
}

func TestMCPTool_Ask_ExplicitURIs(t *testing.T) {
	deps := newTestMCPDeps()
	q := deps.Engine.(*mockQuerier)

	_, err := mcpAsk(deps)(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
		"question":  "what?",
		"file_uris": []interface{}{"uri-c", "uri-unknown"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.lastRefs) != 2 {
		t.Fatalf("refs = %+v", q.lastRefs)
	}
	if q.lastRefs[0].MIMEType != "text/markdown" {
		t.Errorf("known file MIME = %q, want text/markdown", q.lastRefs[0].MIMEType)
	}
	if q.lastRefs[1].MIMEType != "application/pdf" {
		t.Errorf("unknown file MIME = %q, want application/pdf", q.lastRefs[1].MIMEType)
	}
}

func TestMCPTool_Ask_QueryError(t *testing.T) {
	deps := newTestMCPDeps()
	deps.Engine = &mockQuerier{err: &remote.GenerationError{Err: errors.New("overloaded")}}

	result, _ := mcpAsk(deps)(context.Background(), makeCallToolRequest("ask", map[string]interface{}{"question": "q"}))
	if !result.IsError || !strings.Contains(toolText(t, result), "overloaded") {
		t.Fatalf("result = %+v", result)
	}
}

func TestMCPResource_RecentSessions(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sess := session.New("s1")
	sess.AddTurn(session.RoleUser, "first question")
	if err := store.SaveSession(sess); err != nil {
		t.Fatal(err)
	}

	deps := newTestMCPDeps()
	deps.Sessions = store
	contents, err := mcpResourceRecentSessions(deps)(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "gemsearch://sessions/recent"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if !strings.Contains(tc.Text, "first question") {
		t.Errorf("resource = %s", tc.Text)
	}
}

func TestMCPServer_ConcurrentCalls(t *testing.T) {
	deps := newTestMCPDeps()
	ask := mcpAsk(deps)
	list := mcpListFiles(deps)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = ask(context.Background(), makeCallToolRequest("ask", map[string]interface{}{"question": "q"}))
			} else {
				_, err = list(context.Background(), makeCallToolRequest("list_files", nil))
			}
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent call failed: %v", err)
	}
}

func TestNewMCPServer(t *testing.T) {
	if s := NewMCPServer(newTestMCPDeps(), "test"); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}
