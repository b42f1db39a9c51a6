package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"voice-appointment-service/internal/app"
	"voice-appointment-service/internal/models"
	"voice-appointment-service/internal/observability/logging"
	"voice-appointment-service/internal/schema"
	"voice-appointment-service/internal/service/availability"
	"voice-appointment-service/internal/service/disambiguation"
	"voice-appointment-service/internal/store"
)

const maxBodyBytes = 1 << 20

type handlers struct {
	app    *app.Application
	logger zerolog.Logger
}

func newHandlers(a *app.Application) *handlers {
	return &handlers{app: a, logger: logging.WithComponent("http")}
}

type parseRequest struct {
	Transcript string `json:"transcript"`
}

type disambiguateRequest struct {
	Outcome models.Outcome `json:"outcome"`
	Choice  string         `json:"choice"`
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

type errorResponse struct {
	Error  string              `json:"error"`
	Fields []schema.FieldError `json:"fields,omitempty"`
}

// POST /v1/parse
func (h *handlers) parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.app.Parser.Parse(req.Transcript))
}

// POST /v1/disambiguate
func (h *handlers) disambiguate(w http.ResponseWriter, r *http.Request) {
	var req disambiguateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	choice, err := disambiguation.ParseChoice(req.Choice)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	resolved, err := disambiguation.Resolve(req.Outcome, choice)
	if err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

// POST /v1/availability
func (h *handlers) availability(w http.ResponseWriter, r *http.Request) {
	var req availability.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	cand, err := req.Candidate()
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ok, err := h.app.Scheduler.CheckAvailability(r.Context(), cand, req.ExcludeID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Availability check failed")
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{Available: ok})
}

// GET /v1/catalog
func (h *handlers) catalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Catalog)
}

// GET /v1/appointments
func (h *handlers) listAppointments(w http.ResponseWriter, r *http.Request) {
	records, err := h.app.Scheduler.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list appointments")
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// POST /v1/appointments
func (h *handlers) createAppointment(w http.ResponseWriter, r *http.Request) {
	var f models.Fields
	if !decodeJSON(w, r, &f) {
		return
	}
	rec, err := h.app.Scheduler.Commit(r.Context(), f)
	if err != nil {
		h.writeCommitError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handlers) writeCommitError(w http.ResponseWriter, err error) {
	if verr, ok := asValidation(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Error(), Fields: verr.Errors})
		return
	}
	if cerr, ok := asConflict(err); ok {
		jsonError(w, cerr.Error(), http.StatusConflict)
		return
	}
	h.logger.Error().Err(err).Msg("Failed to commit appointment")
	jsonError(w, "internal error", http.StatusInternalServerError)
}

// DELETE /v1/appointments/{id}
func (h *handlers) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		jsonError(w, "missing id", http.StatusBadRequest)
		return
	}
	if err := h.app.Scheduler.Remove(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("id", id).Msg("Failed to remove appointment")
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, errorResponse{Error: msg})
}
