package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/gemsearch/internal/session"
)

type sessionFile struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type sessionTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type sessionResponse struct {
	ID    string        `json:"id"`
	Title string        `json:"title,omitempty"`
	Files []sessionFile `json:"files"`
	Turns []sessionTurn `json:"turns"`
}

func toSessionResponse(s *session.Session) sessionResponse {
	resp := sessionResponse{
		ID:    s.ID,
		Title: s.Title,
		Files: make([]sessionFile, 0, len(s.Files)),
		Turns: make([]sessionTurn, 0, len(s.Turns)),
	}
	for _, f := range s.Files {
		resp.Files = append(resp.Files, sessionFile{Name: f.DisplayName, URI: f.URI})
	}
	for _, t := range s.Turns {
		resp.Turns = append(resp.Turns, sessionTurn{Role: string(t.Role), Text: t.Text})
	}
	return resp
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Sessions == nil {
			httpError(w, http.StatusServiceUnavailable, "sessions are not enabled")
			return
		}
		sess, err := session.LoadOrNew(deps.Sessions, chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "loading session: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, toSessionResponse(sess))
	}
}

func handleClearFiles(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Sessions == nil {
			httpError(w, http.StatusServiceUnavailable, "sessions are not enabled")
			return
		}
		sess, err := session.LoadOrNew(deps.Sessions, chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "loading session: %v", err)
			return
		}
		sess.ClearFiles()
		if err := deps.Sessions.SaveSession(sess); err != nil {
			httpError(w, http.StatusInternalServerError, "saving session: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, toSessionResponse(sess))
	}
}
