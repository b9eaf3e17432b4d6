package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"video-transcriber/internal/domain"
	"video-transcriber/internal/jobs"
)

const maxBodyBytes = 1 << 20

type handler struct {
	svc Service
	log logrus.FieldLogger
}

type transcribeBody struct {
	URL string `json:"url"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// transcribe always answers 200 with a tagged result; only malformed
// requests get an error status. The URL reaches the script untouched and
// the script is killed if the client goes away.
func (h *handler) transcribe(w http.ResponseWriter, r *http.Request) {
	var body transcribeBody
	if err := decodeBody(w, r, &body); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.URL) == "" {
		jsonError(w, "url is required", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, h.svc.TranscribeVideoContext(r.Context(), body.URL))
}

func (h *handler) listRequests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ActiveRequests())
}

func (h *handler) cancelRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.CancelTranscription(id); err != nil {
		if errors.Is(err, jobs.ErrUnknownRequest) {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) requestEvents(w http.ResponseWriter, r *http.Request) {
	events := h.svc.EventsForRequest(chi.URLParam(r, "id"))
	if events == nil {
		events = []jobs.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *handler) getHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GetHistory())
}

func (h *handler) saveHistory(w http.ResponseWriter, r *http.Request) {
	var entry domain.HistoryEntry
	if err := decodeBody(w, r, &entry); err != nil {
		jsonError(w, "invalid history entry: "+err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.svc.SaveHistory(entry)
	if err != nil {
		h.log.WithError(err).Error("save history failed")
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) diagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GetDiagnostics())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
