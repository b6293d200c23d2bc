package server

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
	ledgerx "github.com/tanpawarit/aura-supervisor/agent/ledger"
	orchx "github.com/tanpawarit/aura-supervisor/agent/orchestrator"
	statex "github.com/tanpawarit/aura-supervisor/agent/state"
)

type sessionHandler struct {
	orch     *orchx.Orchestrator
	sessions statex.Store
	ledger   ledgerx.Ledger
	cfg      Config
	now      func() time.Time
}

func newSessionHandler(orch *orchx.Orchestrator, sessions statex.Store, ledger ledgerx.Ledger, cfg Config) *sessionHandler {
	return &sessionHandler{
		orch:     orch,
		sessions: sessions,
		ledger:   ledger,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (h *sessionHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createSessionRequest struct {
	Title string `json:"title"`
}

func (h *sessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	sess := statex.NewSession(req.Title, h.now())
	if err := h.sessions.Create(r.Context(), sess); err != nil {
		writeError(w, http.StatusInternalServerError, "create session: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *sessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.List(r.Context(), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list sessions: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *sessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *sessionHandler) Log(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if _, err := h.sessions.Get(r.Context(), sessionID); err != nil {
		writeSessionError(w, err)
		return
	}
	entries, err := h.ledger.List(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list interactions: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type interactResponse struct {
	Text               string `json:"text"`
	AnnotatedImage     string `json:"annotated_image,omitempty"`
	AnnotatedImageType string `json:"annotated_image_type,omitempty"`
}

// Interact accepts a multipart form with a "text" field and an optional
// "image" file and runs one orchestrated turn.
func (h *sessionHandler) Interact(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	text := r.FormValue("text")

	image, err := readImageField(r, h.cfg.MaxUploadBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image upload: "+err.Error())
		return
	}

	reply, err := h.orch.HandleTurn(r.Context(), sessionID, text, image)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	resp := interactResponse{Text: reply.Text}
	if !reply.AnnotatedImage.Empty() {
		resp.AnnotatedImage = base64.StdEncoding.EncodeToString(reply.AnnotatedImage.Data)
		resp.AnnotatedImageType = reply.AnnotatedImage.ContentType
	}
	writeJSON(w, http.StatusOK, resp)
}

type endSessionRequest struct {
	Outcome string `json:"outcome"`
}

func (h *sessionHandler) End(w http.ResponseWriter, r *http.Request) {
	var req endSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sess, err := h.orch.EndSession(r.Context(), chi.URLParam(r, "id"), contractx.SessionOutcome(req.Outcome))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Delete purges a session and its ledger. Administrative only.
func (h *sessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if _, err := h.sessions.Get(r.Context(), sessionID); err != nil {
		writeSessionError(w, err)
		return
	}
	if err := h.ledger.Purge(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, "purge interactions: "+err.Error())
		return
	}
	if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, "delete session: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readImageField(r *http.Request, limit int64) (contractx.ImagePayload, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return contractx.ImagePayload{}, nil
	}
	if err != nil {
		return contractx.ImagePayload{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit))
	if err != nil {
		return contractx.ImagePayload{}, err
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return contractx.ImagePayload{Data: data, ContentType: contentType}, nil
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contractx.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, contractx.ErrSessionClosed), errors.Is(err, statex.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, contractx.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
