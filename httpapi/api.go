// Package httpapi exposes the conversation service over HTTP. Users are
// identified by the X-User-ID header; sessions are path parameters. All
// responses are JSON.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tobhei/docuchat"
	"github.com/tobhei/docuchat/core"
	"github.com/tobhei/docuchat/logging"
)

const userIDHeader = "X-User-ID"

// Handler routes API requests to the docuchat façade.
type Handler struct {
	app     *docuchat.DocuChat
	logger  logging.Logger
	started time.Time
}

// NewHandler creates a Handler around the façade.
func NewHandler(app *docuchat.DocuChat, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Handler{app: app, logger: logger, started: time.Now()}
}

// Router builds the chi router with all API routes mounted.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Route("/conversations", func(r chi.Router) {
			r.Post("/create", h.createSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Post("/send-message", h.sendMessage)
				r.Post("/clear", h.clearSession)
				r.Get("/stats", h.stats)
				r.Get("/history", h.history)
			})
		})
	})
	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func userID(r *http.Request) string {
	return r.Header.Get(userIDHeader)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"active_users":   len(h.app.ActiveUsers()),
	})
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		Error(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}

	sessionID, err := h.app.CreateSession(uid)
	if err != nil {
		h.logger.Error("create session failed", "user_id", uid, "error", err.Error())
		Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	JSON(w, http.StatusCreated, map[string]string{"session_id": sessionID})
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

type sendMessageResponse struct {
	Answer     string `json:"answer"`
	Success    bool   `json:"success"`
	Iterations int    `json:"iterations"`
	Error      string `json:"error,omitempty"`
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		Error(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.app.SendMessage(r.Context(), uid, sessionID, req.Message)
	if err != nil {
		switch core.KindOf(err) {
		case core.KindValidation:
			Error(w, http.StatusBadRequest, err.Error())
			return
		case core.KindIterationLimit:
			// A partial answer is still a usable response.
		default:
			h.logger.Error("send message failed",
				"user_id", uid, "session_id", sessionID, "error", err.Error())
			Error(w, http.StatusBadGateway, "agent turn failed")
			return
		}
	}

	resp := sendMessageResponse{
		Answer:     res.Answer,
		Success:    res.Success,
		Iterations: res.Iterations,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	JSON(w, http.StatusOK, resp)
}

func (h *Handler) clearSession(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		Error(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	n, err := h.app.ClearSession(r.Context(), uid, sessionID)
	if err != nil {
		h.logger.Error("clear session failed",
			"user_id", uid, "session_id", sessionID, "error", err.Error())
		Error(w, http.StatusInternalServerError, "failed to clear session")
		return
	}
	JSON(w, http.StatusOK, map[string]int{"deleted_messages": n})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		Error(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	stats, err := h.app.Stats(r.Context(), uid, sessionID)
	if err != nil {
		h.logger.Error("stats failed",
			"user_id", uid, "session_id", sessionID, "error", err.Error())
		Error(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	JSON(w, http.StatusOK, stats)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		Error(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	history, err := h.app.History(r.Context(), uid, sessionID)
	if err != nil {
		h.logger.Error("history failed",
			"user_id", uid, "session_id", sessionID, "error", err.Error())
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"history": history})
}
