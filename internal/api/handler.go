package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/RichardoC/arohi/internal/chat"
	"github.com/RichardoC/arohi/internal/models"
	"go.uber.org/zap"
)

type Handler struct {
	store  *chat.Store
	logger *zap.Logger
}

func NewHandler(store *chat.Store, logger *zap.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Routes registers the API on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/sessions", h.Sessions)
	mux.HandleFunc("/api/sessions/select", h.SelectSession)
	mux.HandleFunc("/api/sessions/start", h.StartChat)
	mux.HandleFunc("/api/messages", h.GetMessages)
	mux.HandleFunc("/api/message", h.HandleMessage)
	mux.HandleFunc("/api/settings", h.Settings)
	mux.HandleFunc("/api/settings/memory/toggle", h.ToggleMemory)
}

type MessageRequest struct {
	Text string `json:"text"`
}

type MessageResponse struct {
	Message models.Message `json:"message"`
	Pending bool           `json:"pending"`
}

type SessionsResponse struct {
	Sessions  []models.ChatSession `json:"sessions"`
	CurrentID string               `json:"currentId"`
	Pending   bool                 `json:"pending"`
}

type CreateSessionResponse struct {
	ID string `json:"id"`
}

type UpdateSettingsRequest struct {
	MemoryEnabled *bool         `json:"memoryEnabled"`
	Theme         *models.Theme `json:"theme"`
}

// HandleMessage appends the user message and returns immediately; the reply
// shows up on a later GetMessages once the model answers.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "Message text is required", http.StatusBadRequest)
		return
	}

	// The request context ends with this response; the reply must outlive it.
	userMsg, _, err := h.store.TrySendMessageAsync(context.Background(), sessionID, req.Text)
	switch {
	case errors.Is(err, chat.ErrPending):
		http.Error(w, "A reply is still pending for this conversation", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}

	h.logger.Debug("Accepted message",
		zap.String("sessionID", sessionID),
		zap.String("messageID", userMsg.ID))

	h.writeJSON(w, http.StatusAccepted, MessageResponse{
		Message: userMsg,
		Pending: h.store.Pending(sessionID),
	})
}

// Sessions lists (GET), creates (POST) or clears (DELETE) conversations.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessions := h.store.ListSessions()
		currentID := h.store.CurrentID()

		h.logger.Debug("Retrieved conversations",
			zap.Int("count", len(sessions)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))

		h.writeJSON(w, http.StatusOK, SessionsResponse{
			Sessions:  sessions,
			CurrentID: currentID,
			Pending:   h.store.Pending(currentID),
		})

	case http.MethodPost:
		h.writeJSON(w, http.StatusCreated, CreateSessionResponse{ID: h.store.CreateSession()})

	case http.MethodDelete:
		h.store.ClearAll()
		h.logger.Info("Cleared all conversations")
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) SelectSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.store.SelectSession(r.URL.Query().Get("session_id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) StartChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, CreateSessionResponse{ID: h.store.StartChat()})
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, ok := h.store.Session(r.URL.Query().Get("session_id"))
	if !ok {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, session)
}

func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, http.StatusOK, h.store.Settings())

	case http.MethodPut:
		var req UpdateSettingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Theme != nil && *req.Theme != models.ThemeDark && *req.Theme != models.ThemeLight {
			http.Error(w, "Unknown theme", http.StatusBadRequest)
			return
		}

		if req.MemoryEnabled != nil {
			h.store.SetMemory(*req.MemoryEnabled)
		}
		if req.Theme != nil {
			h.store.SetTheme(*req.Theme)
		}
		h.writeJSON(w, http.StatusOK, h.store.Settings())

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) ToggleMemory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.store.ToggleMemory()
	h.writeJSON(w, http.StatusOK, h.store.Settings())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
