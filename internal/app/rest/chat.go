package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/christmas-fire/nexus-push/internal/log"
	"github.com/christmas-fire/nexus-push/internal/models"
	chatRepo "github.com/christmas-fire/nexus-push/internal/repository/chat"
	chatService "github.com/christmas-fire/nexus-push/internal/service/chat"
)

type ChatHandler struct {
	service  *chatService.ChatService
	validate *validator.Validate
}

func NewChatHandler(service *chatService.ChatService, validate *validator.Validate) *ChatHandler {
	return &ChatHandler{service: service, validate: validate}
}

type OpenChatRequest struct {
	UserIDs []string `json:"userIds" validate:"required,min=1,dive,required"`
}

type SendMessageRequest struct {
	User     models.Sender `json:"user"`
	Text     *string       `json:"text"`
	ImageURL *string       `json:"imageUrl" validate:"omitempty,url"`
	AudioURL *string       `json:"audioUrl" validate:"omitempty,url"`
}

type SendMessageResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *ChatHandler) OpenChat(w http.ResponseWriter, r *http.Request) {
	var req OpenChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.service.OpenChat(r.Context(), req.UserIDs)
	if err != nil {
		if errors.Is(err, chatService.ErrNoParticipants) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		l := log.Ctx(r.Context())
		l.Error().Err(err).Msg("could not open chat")
		writeError(w, http.StatusInternalServerError, "could not open chat")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.User.UserID == "" {
		writeError(w, http.StatusBadRequest, "user.userId is required")
		return
	}

	payload := models.PayloadFromFields(req.Text, req.ImageURL, req.AudioURL)
	msg, err := h.service.SendMessage(r.Context(), chatID, req.User, payload)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, SendMessageResponse{ID: msg.ID, CreatedAt: msg.CreatedAt})
	case errors.Is(err, chatService.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatService.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, chatRepo.ErrChatNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		l := log.Ctx(r.Context())
		l.Error().Err(err).Str(log.FieldChatID, chatID).Msg("could not send message")
		writeError(w, http.StatusInternalServerError, "could not send message")
	}
}
