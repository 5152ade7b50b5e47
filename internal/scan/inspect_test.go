package scan

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMIMEType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"report.pdf", "application/pdf"},
		{"REPORT.PDF", "application/pdf"},
		{"page.html", "text/html"},
		{"archive.zzqx", "text/plain"},
		{"Makefile", "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MIMEType(tt.name, "text/plain"); got != tt.want {
				t.Errorf("MIMEType(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.zzqx")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	lf, err := Inspect(path, "text/plain")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if lf.Name != "notes.zzqx" {
		t.Errorf("Name = %q, want notes.zzqx", lf.Name)
	}
	if lf.MIMEType != "text/plain" {
		t.Errorf("MIMEType = %q, want text/plain", lf.MIMEType)
	}
	if lf.Size != 5 {
		t.Errorf("Size = %d, want 5", lf.Size)
	}
	if lf.Pages != 0 {
		t.Errorf("Pages = %d, want 0", lf.Pages)
	}
}

func TestInspect_MalformedPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("not really a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	lf, err := Inspect(path, "text/plain")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if lf.MIMEType != "application/pdf" {
		t.Errorf("MIMEType = %q, want application/pdf", lf.MIMEType)
	}
	if lf.Pages != 0 {
		t.Errorf("Pages = %d, want 0 for unreadable pdf", lf.Pages)
	}
	if _, err := PDFPages(path); err == nil {
		t.Error("PDFPages on malformed file: expected error")
	}
}

func TestInspect_Missing(t *testing.T) {
	if _, err := Inspect(filepath.Join(t.TempDir(), "gone.txt"), "text/plain"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
