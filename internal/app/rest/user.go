package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/christmas-fire/nexus-push/internal/log"
	"github.com/christmas-fire/nexus-push/internal/models"
	userRepo "github.com/christmas-fire/nexus-push/internal/repository/user"
	userService "github.com/christmas-fire/nexus-push/internal/service/user"
)

type UserHandler struct {
	service  *userService.UserService
	validate *validator.Validate
}

func NewUserHandler(service *userService.UserService, validate *validator.Validate) *UserHandler {
	return &UserHandler{service: service, validate: validate}
}

type RegisterUserRequest struct {
	UserID     string  `json:"userId" validate:"required,max=128"`
	Email      string  `json:"email" validate:"required,email"`
	Name       string  `json:"name" validate:"required,max=64"`
	ProfileURL *string `json:"profileUrl" validate:"omitempty,url"`
}

type RegisterDeviceTokenRequest struct {
	Token string `json:"token" validate:"required,max=4096"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u := models.User{
		ID:         req.UserID,
		Email:      req.Email,
		Name:       req.Name,
		ProfileURL: req.ProfileURL,
	}

	if err := h.service.Register(r.Context(), u); err != nil {
		if errors.Is(err, userRepo.ErrUserAlreadyExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		l := log.Ctx(r.Context())
		l.Error().Err(err).Str(log.FieldUserID, u.ID).Msg("could not create user")
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		if errors.Is(err, userRepo.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "could not load user")
		return
	}

	// device tokens stay server-side
	u.FCMTokens = nil
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) RegisterDeviceToken(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req RegisterDeviceTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.service.RegisterDeviceToken(r.Context(), userID, req.Token)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, userRepo.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, userService.ErrTokenRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		l := log.Ctx(r.Context())
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("could not register device token")
		writeError(w, http.StatusInternalServerError, "could not register device token")
	}
}
