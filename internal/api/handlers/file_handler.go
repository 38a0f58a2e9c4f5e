package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/CoachHub/internal/models"
	"github.com/markdave123-py/CoachHub/internal/services"
)

type FileHandler struct {
	files *services.FileService
}

func NewFileHandler(files *services.FileService) *FileHandler {
	return &FileHandler{files: files}
}

func linkageFrom(r *http.Request) services.Linkage {
	q := r.URL.Query()
	return services.Linkage{
		LinkedClient:  q.Get("linkedClient"),
		LinkedSession: q.Get("linkedSession"),
		LinkedJourney: q.Get("linkedJourney"),
	}
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	files, err := h.files.List(r.Context(), v, linkageFrom(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	f, err := h.files.Get(r.Context(), v, chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// Upload takes a multipart "file" plus optional form fields: description,
// isPrivate, sharedWithRoles, sharedWithUsers (comma separated or JSON
// arrays), linkedClient, linkedSession, linkedJourney.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FILE", "invalid multipart form", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FILE", "multipart field \"file\" is required", nil)
		return
	}
	defer file.Close()

	isPrivate, err := formBool(r.FormValue("isPrivate"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "isPrivate must be a boolean", map[string]any{"value": r.FormValue("isPrivate")})
		return
	}
	in := services.UploadFileInput{
		Linkage: services.Linkage{
			LinkedClient:  r.FormValue("linkedClient"),
			LinkedSession: r.FormValue("linkedSession"),
			LinkedJourney: r.FormValue("linkedJourney"),
		},
		FileName:        header.Filename,
		ContentType:     contentType(header.Header.Get("Content-Type")),
		Size:            header.Size,
		Description:     r.FormValue("description"),
		IsPrivate:       isPrivate,
		SharedWithRoles: formList(r.FormValue("sharedWithRoles")),
		SharedWithUsers: formList(r.FormValue("sharedWithUsers")),
	}

	f, err := h.files.Upload(r.Context(), v, in, file)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// formBool reads a form flag. Checkbox values ("on", "yes") count as true;
// anything unrecognised is an error rather than false.
func formBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return false, nil
	case "on", "yes", "y":
		return true, nil
	case "off", "no", "n":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(raw))
}

// formList reads a JSON array or a comma separated list.
func formList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		return models.ParseStringList(raw)
	}
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (h *FileHandler) UpdateSharing(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	var sharing services.Sharing
	if err := decodeBody(r, &sharing); err != nil {
		badRequest(w, err)
		return
	}
	f, err := h.files.UpdateSharing(r.Context(), v, chi.URLParam(r, "id"), sharing)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	v, ok := viewer(w, r)
	if !ok {
		return
	}
	if err := h.files.Delete(r.Context(), v, chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
