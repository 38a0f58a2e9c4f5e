package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/CoachHub/internal/services"
)

type SessionHandler struct {
	sessions *services.SessionService
	analysis *services.AnalysisService
}

func NewSessionHandler(sessions *services.SessionService, analysis *services.AnalysisService) *SessionHandler {
	return &SessionHandler{sessions: sessions, analysis: analysis}
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	board, err := h.sessions.List(r.Context(), v, r.URL.Query().Get("client_id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	session, err := h.sessions.Get(r.Context(), v, chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	var in services.CreateSessionInput
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	session, err := h.sessions.Create(r.Context(), v, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	session, err := h.sessions.Complete(r.Context(), v, chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Delete(r.Context(), v, chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) SyncCalendar(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	result, err := h.sessions.SyncCalendar(r.Context(), v)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": result})
}

func (h *SessionHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	session, err := h.sessions.Backfill(r.Context(), v, chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// UploadTranscript accepts a multipart "file" field. Extraction runs in the
// background, so the answer is 202.
func (h *SessionHandler) UploadTranscript(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FILE", "multipart field \"file\" is required", nil)
		return
	}
	defer file.Close()

	session, err := h.sessions.UploadTranscript(r.Context(), v, chi.URLParam(r, "id"), header.Filename, contentType(header.Header.Get("Content-Type")), file)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, session)
}

func (h *SessionHandler) GenerateAnalysis(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	view, err := h.analysis.Generate(r.Context(), v, chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *SessionHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	view, err := h.analysis.Get(r.Context(), v, chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func contentType(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
