package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kalambet/gemsearch/internal/remote"
	"github.com/kalambet/gemsearch/internal/scan"
	"github.com/kalambet/gemsearch/internal/session"
)

const multipartMemory = 8 << 20

type uploadResponse struct {
	Success bool   `json:"success"`
	FileURI string `json:"fileUri"`
	Name    string `json:"name"`
}

func handleUpload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, deps.MaxUploadBytes)
		defer r.Body.Close()

		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httpError(w, http.StatusRequestEntityTooLarge, "File exceeds %d bytes", tooLarge.Limit)
				return
			}
			if !errors.Is(err, http.ErrNotMultipart) {
				httpError(w, http.StatusBadRequest, "invalid form: %v", err)
				return
			}
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		defer file.Close()

		apiKey := r.FormValue("apiKey")
		if apiKey == "" {
			httpError(w, http.StatusUnauthorized, "API Key required")
			return
		}

		provider, err := deps.Providers.ForKey(r.Context(), apiKey)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "%v", err)
			return
		}

		name := filepath.Base(header.Filename)
		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = scan.MIMEType(name, "application/pdf")
		}

		uploaded, err := uploadTransient(r, provider, file, name, mimeType)
		if err != nil {
			deps.Logger.Error("upload failed", "file", name, "error", err)
			httpError(w, http.StatusInternalServerError, "%v", err)
			return
		}
		deps.Logger.Info("uploaded file", "file", name, "remote", uploaded.Name)

		if id := r.FormValue("sessionId"); id != "" && deps.Sessions != nil {
			if err := recordUpload(deps.Sessions, id, uploaded); err != nil {
				deps.Logger.Warn("recording upload in session failed", "session", id, "error", err)
			}
		}

		writeJSON(w, http.StatusOK, uploadResponse{
			Success: true,
			FileURI: uploaded.URI,
			Name:    uploaded.Name,
		})
	}
}

// uploadTransient copies src to a request-owned temporary file, uploads it,
// and removes the file on every path.
func uploadTransient(r *http.Request, store remote.FileStore, src multipart.File, name, mimeType string) (remote.File, error) {
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("upload-%s-%s", uuid.New().String(), name))
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return remote.File{}, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return remote.File{}, fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return remote.File{}, fmt.Errorf("closing temp file: %w", err)
	}

	f, err := store.Upload(r.Context(), tmpPath, mimeType, name)
	if err != nil {
		return remote.File{}, &remote.UploadError{Path: name, Err: err}
	}
	return f, nil
}

func recordUpload(store session.Store, id string, f remote.File) error {
	sess, err := session.LoadOrNew(store, id)
	if err != nil {
		return err
	}
	sess.AddFile(f.Ref())
	return store.SaveSession(sess)
}
