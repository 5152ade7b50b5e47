package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/kalambet/gemsearch/internal/query"
	"github.com/kalambet/gemsearch/internal/remote"
	"github.com/kalambet/gemsearch/internal/session"
)

// chatMIMEType is assumed for every file referenced by a chat request.
const chatMIMEType = "application/pdf"

type chatRequest struct {
	APIKey    string   `json:"apiKey" validate:"required"`
	Message   string   `json:"message" validate:"required"`
	FileURIs  []string `json:"fileUris" validate:"omitempty,dive,required"`
	SessionID string   `json:"sessionId" validate:"omitempty,max=128"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func handleChat(deps Deps, validate *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if err := validate.Struct(req); err != nil {
			code, msg := chatValidationError(err)
			httpError(w, code, "%s", msg)
			return
		}

		provider, err := deps.Providers.ForKey(r.Context(), req.APIKey)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "%v", err)
			return
		}

		refs := make([]remote.FileRef, 0, len(req.FileURIs))
		for _, uri := range req.FileURIs {
			refs = append(refs, remote.FileRef{URI: uri, MIMEType: chatMIMEType})
		}

		reply, err := query.New(provider, deps.Logger).Query(r.Context(), req.Message, refs)
		if errors.Is(err, query.ErrEmptyQuestion) {
			httpError(w, http.StatusBadRequest, "Message required")
			return
		}
		if err != nil {
			var genErr *remote.GenerationError
			if errors.As(err, &genErr) {
				err = genErr.Err
			}
			httpError(w, http.StatusInternalServerError, "%v", err)
			return
		}

		if req.SessionID != "" && deps.Sessions != nil {
			if err := recordTurns(deps.Sessions, req.SessionID, req.Message, reply); err != nil {
				deps.Logger.Warn("recording chat turns failed", "session", req.SessionID, "error", err)
			}
		}

		writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
	}
}

// chatValidationError maps the first failing field to a status and message.
// A missing credential wins over a missing message.
func chatValidationError(err error) (int, string) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return http.StatusBadRequest, err.Error()
	}
	for _, fe := range verrs {
		if fe.StructField() == "APIKey" {
			return http.StatusUnauthorized, "API Key required"
		}
	}
	for _, fe := range verrs {
		switch fe.StructField() {
		case "Message":
			return http.StatusBadRequest, "Message required"
		case "FileURIs":
			return http.StatusBadRequest, "fileUris must not contain empty entries"
		}
	}
	return http.StatusBadRequest, verrs[0].Error()
}

func recordTurns(store session.Store, id, question, answer string) error {
	sess, err := session.LoadOrNew(store, id)
	if err != nil {
		return err
	}
	sess.AddTurn(session.RoleUser, question)
	sess.AddTurn(session.RoleModel, answer)
	return store.SaveSession(sess)
}
