package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"

	"github.com/google/uuid"
)

// Handler exposes the session and submission use cases over JSON.
type Handler struct {
	service *app.SessionService
}

func NewHandler(service *app.SessionService) *Handler {
	return &Handler{service: service}
}

// Register mounts all routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("GET /sessions/open", h.listOpenSessions)
	mux.HandleFunc("PATCH /sessions/{name}/window", h.updateWindow)
	mux.HandleFunc("DELETE /sessions/{name}", h.deleteSession)
	mux.HandleFunc("POST /sessions/{name}/submissions", h.submit)
	mux.HandleFunc("GET /sessions/{name}/statistics", h.statistics)
	mux.HandleFunc("GET /results/{handle}", h.getResult)
}

type createSessionRequest struct {
	QuizID    string     `json:"quizId"`
	Name      string     `json:"name"`
	OpenFrom  time.Time  `json:"openFrom"`
	OpenUntil *time.Time `json:"openUntil,omitempty"`
}

type windowRequest struct {
	OpenFrom  time.Time  `json:"openFrom"`
	OpenUntil *time.Time `json:"openUntil,omitempty"`
}

type submitRequest struct {
	ParticipantIdentity string           `json:"participantIdentity"`
	Answers             domain.AnswerSet `json:"answers"`
}

type withheldPayload struct {
	WithheldUntil time.Time `json:"withheldUntil"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid request body"})
		return
	}
	if req.QuizID == "" || req.Name == "" || req.OpenFrom.IsZero() {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "quizId, name, and openFrom are required"})
		return
	}
	session, err := h.service.CreateSession(r.Context(), req.QuizID, req.Name, req.OpenFrom, req.OpenUntil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) listOpenSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListOpenSessions(r.Context(), time.Now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) updateWindow(w http.ResponseWriter, r *http.Request) {
	var req windowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid request body"})
		return
	}
	if req.OpenFrom.IsZero() {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "openFrom is required"})
		return
	}
	session, err := h.service.UpdateSessionWindow(r.Context(), r.PathValue("name"), req.OpenFrom, req.OpenUntil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), r.PathValue("name")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid request body"})
		return
	}
	if req.ParticipantIdentity == "" {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "participantIdentity is required"})
		return
	}
	result, err := h.service.Submit(r.Context(), r.PathValue("name"), req.ParticipantIdentity, req.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.SessionStatistics(r.Context(), r.PathValue("name"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) getResult(w http.ResponseWriter, r *http.Request) {
	handle, err := uuid.Parse(r.PathValue("handle"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid result handle"})
		return
	}
	result, err := h.service.GetResult(r.Context(), handle)
	if err != nil {
		var withheld *domain.ResultWithheldError
		if errors.As(err, &withheld) {
			writeJSON(w, http.StatusForbidden, withheldPayload{WithheldUntil: withheld.VisibleAt})
			return
		}
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeError maps the domain error taxonomy onto status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var notOpen *domain.SessionNotOpenError
	var duplicate *domain.DuplicateSubmissionError
	var invalid *domain.InvalidAnswerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrSubmissionNotFound):
		writeJSON(w, http.StatusNotFound, errorPayload{Message: err.Error()})
	case errors.Is(err, domain.ErrSessionNameTaken):
		writeJSON(w, http.StatusConflict, errorPayload{Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidWindow):
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: err.Error()})
	case errors.As(err, &notOpen):
		writeJSON(w, http.StatusForbidden, errorPayload{Message: notOpen.Error()})
	case errors.As(err, &duplicate):
		writeJSON(w, http.StatusConflict, errorPayload{Message: duplicate.Error()})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, errorPayload{Message: invalid.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorPayload{Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
