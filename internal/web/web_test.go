package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_ServesIndex(t *testing.T) {
	for _, path := range []string{"/", "/some/client/route"} {
		rr := httptest.NewRecorder()
		Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, rr.Code)
		}
		body := rr.Body.String()
		if !strings.Contains(body, "gemini_api_key") {
			t.Errorf("GET %s: body missing credential storage key", path)
		}
		if !strings.Contains(body, "/api/upload") || !strings.Contains(body, "/api/chat") {
			t.Errorf("GET %s: body missing API endpoints", path)
		}
	}
}

func TestHandler_KeepsUploadsInBrowser(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	body := rr.Body.String()

	for _, want := range []string{
		`const FILES_STORAGE = "gemsearch_files"`,
		`addFiles([{ name: file.name, uri: data.fileUri }])`,
		`localStorage.setItem(FILES_STORAGE`,
		`fileUris: state.files.map((f) => f.uri)`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index.html missing %q", want)
		}
	}
}
