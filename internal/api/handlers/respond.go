package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	middleware "github.com/markdave123-py/CoachHub/internal/api/middlewares"
	"github.com/markdave123-py/CoachHub/internal/logging"
	"github.com/markdave123-py/CoachHub/internal/models"
	"github.com/markdave123-py/CoachHub/internal/services"
)

// maxUploadSize bounds multipart uploads.
const maxUploadSize = 52 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	body := map[string]any{"code": code, "message": message}
	if details != nil {
		body["details"] = details
	}
	writeJSON(w, status, map[string]any{"error": body})
}

// fail renders err through services.MapError. Unexpected errors are logged
// and hidden from the client.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := services.MapError(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusServiceUnavailable {
		logging.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func badRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
}

// viewer returns the authenticated viewer, answering 401 when absent.
func viewer(w http.ResponseWriter, r *http.Request) (models.Viewer, bool) {
	v, ok := middleware.ViewerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated", nil)
	}
	return v, ok
}
