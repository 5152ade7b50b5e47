package scan

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

const pdfMIMEType = "application/pdf"

// LocalFile describes one candidate file found by a scan.
type LocalFile struct {
	Path     string
	Name     string
	MIMEType string
	Size     int64
	// Pages is the PDF page count, 0 when unknown or not a PDF.
	Pages int
}

// Inspect stats path and infers its display name and MIME type.
func Inspect(path, defaultMIME string) (LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return LocalFile{}, err
	}
	lf := LocalFile{
		Path:     path,
		Name:     filepath.Base(path),
		MIMEType: MIMEType(path, defaultMIME),
		Size:     info.Size(),
	}
	if lf.MIMEType == pdfMIMEType {
		if n, err := PDFPages(path); err == nil {
			lf.Pages = n
		}
	}
	return lf, nil
}

// MIMEType infers a bare media type from the extension of name, returning
// fallback when the extension is unknown.
func MIMEType(name, fallback string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return fallback
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return fallback
	}
	mediaType, _, err := mime.ParseMediaType(t)
	if err != nil {
		return fallback
	}
	return mediaType
}

// PDFPages returns the number of pages in the PDF at path.
func PDFPages(path string) (n int, err error) {
	// The parser panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("reading pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()
	return r.NumPage(), nil
}
