package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"quizzapp-service/internal/app"
	"quizzapp-service/internal/domain"
	"quizzapp-service/internal/subjects"
)

// IconSource loads subject icons by URL.
type IconSource interface {
	LoadIcon(ctx context.Context, url string) (subjects.Icon, error)
}

// API serves the read-only REST surface next to the websocket endpoint.
type API struct {
	service *app.QuizService
	icons   IconSource
	logger  zerolog.Logger
}

func NewAPI(service *app.QuizService, icons IconSource, logger zerolog.Logger) *API {
	return &API{service: service, icons: icons, logger: logger}
}

// Routes registers the REST handlers, the websocket endpoint and an optional metrics handler.
func (a *API) Routes(ws *WSHandler, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /subjects", a.listSubjects)
	mux.HandleFunc("GET /subjects/{id}", a.getSubject)
	mux.HandleFunc("GET /subjects/{id}/icon", a.getIcon)
	mux.HandleFunc("GET /scores", a.listScores)
	if ws != nil {
		mux.HandleFunc("/ws", ws.ServeWS)
	}
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return mux
}

func (a *API) listSubjects(w http.ResponseWriter, r *http.Request) {
	list, err := a.service.ListSubjects(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	out := make([]domain.SubjectSummary, 0, len(list))
	for _, subject := range list {
		out = append(out, subject.Summary())
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getSubject(w http.ResponseWriter, r *http.Request) {
	subject, err := a.service.GetSubject(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subject.Summary())
}

func (a *API) getIcon(w http.ResponseWriter, r *http.Request) {
	subject, err := a.service.GetSubject(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	if a.icons == nil || subject.IconRef == "" {
		writeJSON(w, http.StatusNotFound, errorPayload{Message: subjects.ErrNoIcon.Error()})
		return
	}
	icon, err := a.icons.LoadIcon(r.Context(), subject.IconRef)
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", icon.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(icon.Data)
}

func (a *API) listScores(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "missing userId"})
		return
	}
	scores, err := a.service.Scores(r.Context(), userID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, errorPayload{Message: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSubjectNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, subjects.ErrNoIcon):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSelectionLocked),
		errors.Is(err, domain.ErrNotAnswered),
		errors.Is(err, domain.ErrSessionCompleted),
		errors.Is(err, domain.ErrSessionNotCompleted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAnswerNotOffered),
		errors.Is(err, domain.ErrSubjectNotPlayable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, subjects.ErrTransport),
		errors.Is(err, subjects.ErrUnexpectedStatus),
		errors.Is(err, subjects.ErrDecode),
		errors.Is(err, subjects.ErrInvalidPayload),
		errors.Is(err, subjects.ErrInvalidEndpoint):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
