package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"quiniela-service/internal/app"
	"quiniela-service/internal/domain"
)

// Handler wires the quiniela use cases into the REST API.
type Handler struct {
	service *app.Service
	live    *LiveHandler
	admin   *adminAuth
}

func NewHandler(service *app.Service, hub *app.Hub, adminPIN string) *Handler {
	return &Handler{
		service: service,
		live:    NewLiveHandler(hub),
		admin:   &adminAuth{pin: adminPIN},
	}
}

// Router builds the chi route tree.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/settings", h.getSettings)
		r.Get("/answers", h.getPublicAnswers)
		r.Get("/questions", h.getQuestions)
		r.Get("/results", h.getDistributions)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.getParticipantCount)
			r.Post("/check", h.checkNickname)
			r.Post("/register", h.register)
			r.Post("/login", h.login)
		})

		r.Route("/predictions", func(r chi.Router) {
			r.Post("/", h.submitPredictions)
			r.Get("/user/{userID}", h.getPredictions)
			r.Get("/user/{userID}/complete", h.getCompletion)
		})

		r.Route("/leaderboard", func(r chi.Router) {
			r.Get("/", h.getLeaderboard)
			r.Get("/live", h.live.ServeWS)
			r.Get("/position/{userID}", h.getPosition)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/verify", h.verifyAdminPIN)
			r.Group(func(r chi.Router) {
				r.Use(h.admin.require)
				r.Get("/settings", h.getSettings)
				r.Put("/settings", h.updateSettings)
				r.Get("/answers", h.getAdminAnswers)
				r.Post("/answers/{questionID}", h.markAnswer)
				r.Delete("/answers/{questionID}", h.removeAnswer)
				r.Get("/participants", h.listParticipants)
				r.Delete("/users/{userID}", h.deleteParticipant)
				r.Post("/users/{userID}/reset-pin", h.resetPIN)
			})
		})
	})

	return r
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Settings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid settings payload"))
		return
	}
	settings, err := h.service.UpdateSettings(r.Context(), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) getPublicAnswers(w http.ResponseWriter, r *http.Request) {
	answers, err := h.service.PublicAnswers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

func (h *Handler) getAdminAnswers(w http.ResponseWriter, r *http.Request) {
	answers, err := h.service.CorrectAnswers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

func (h *Handler) getQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Catalog().Questions())
}

func (h *Handler) checkNickname(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nickname string `json:"nickname"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("nickname required"))
		return
	}
	status, err := h.service.CheckNickname(r.Context(), body.Nickname)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nickname string `json:"nickname"`
		PIN      string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("nickname and pin required"))
		return
	}
	p, err := h.service.Register(r.Context(), body.Nickname, body.PIN)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nickname string `json:"nickname"`
		PIN      string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("nickname and pin required"))
		return
	}
	p, err := h.service.Login(r.Context(), body.Nickname, body.PIN)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) getParticipantCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.ParticipantCount(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *Handler) submitPredictions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID      string            `json:"userId"`
		Predictions map[string]string `json:"predictions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" || len(body.Predictions) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("userId and predictions required"))
		return
	}
	answers := make(map[int]string, len(body.Predictions))
	for rawID, value := range body.Predictions {
		questionID, err := strconv.Atoi(rawID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("question ids must be integers"))
			return
		}
		answers[questionID] = value
	}
	if err := h.service.SubmitPredictions(r.Context(), body.UserID, answers); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

func (h *Handler) getPredictions(w http.ResponseWriter, r *http.Request) {
	predictions, err := h.service.PredictionsFor(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, predictions)
}

func (h *Handler) getCompletion(w http.ResponseWriter, r *http.Request) {
	completion, err := h.service.CompletionFor(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completion)
}

func (h *Handler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Leaderboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) getPosition(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.UserPosition(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) markAnswer(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.Atoi(chi.URLParam(r, "questionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("question id must be an integer"))
		return
	}
	var body struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Answer == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("answer required"))
		return
	}
	update, err := h.service.MarkCorrectAnswer(r.Context(), questionID, body.Answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (h *Handler) removeAnswer(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.Atoi(chi.URLParam(r, "questionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("question id must be an integer"))
		return
	}
	update, err := h.service.RemoveCorrectAnswer(r.Context(), questionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (h *Handler) listParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.service.ListParticipants(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participants)
}

func (h *Handler) deleteParticipant(w http.ResponseWriter, r *http.Request) {
	nickname, err := h.service.DeleteParticipant(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "nickname": nickname})
}

func (h *Handler) resetPIN(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NewPIN string `json:"newPin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("newPin required"))
		return
	}
	if err := h.service.ResetPIN(r.Context(), chi.URLParam(r, "userID"), body.NewPIN); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) getDistributions(w http.ResponseWriter, r *http.Request) {
	distributions, total, err := h.service.Distributions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"distributions":     distributions,
		"totalParticipants": total,
	})
}

func (h *Handler) verifyAdminPIN(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PIN == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("pin required"))
		return
	}
	if !h.admin.check(body.PIN) {
		writeJSON(w, http.StatusForbidden, errorBody("wrong pin"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrPredictionsLocked):
		writeJSON(w, http.StatusForbidden, errorBody(err.Error()))
	case errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrNotRanked):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, domain.ErrNicknameTaken):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, domain.ErrPINMismatch):
		writeJSON(w, http.StatusUnauthorized, errorBody(err.Error()))
	case errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrInvalidPIN),
		errors.Is(err, domain.ErrInvalidNickname):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
