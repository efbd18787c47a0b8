package account

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pistigreen/pistigreen-backend/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the account flows.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the activation link route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/activateemail", h.activateEmail)
}

// MountAPIRoutes registers JSON account routes.
func (h *Handler) MountAPIRoutes(r chi.Router) {
	r.Post("/signup", h.signup)
}

func (h *Handler) activateEmail(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := ActivationRequest{
		Email: query.Get("email"),
		ID:    query.Get("id"),
	}

	message, err := h.service.Activate(r.Context(), req)
	switch {
	case err == nil, errors.Is(err, ErrInvalidParameters):
		// Invalid parameters keep the 200 status clients already depend on.
		httpx.Text(w, http.StatusOK, message)
	case errors.Is(err, ErrAccountNotFound):
		httpx.Text(w, http.StatusNotFound, message)
	default:
		h.logger.Error("activate account", slog.Any("error", err))
		httpx.Text(w, http.StatusInternalServerError, message)
	}
}

type signupResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSON(w, http.StatusBadRequest, signupResponse{Message: "invalid request body"})
		return
	}

	_, err := h.service.Register(r.Context(), req)
	var validationErr *ValidationError
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, signupResponse{Message: "success"})
	case errors.As(err, &validationErr):
		httpx.JSON(w, http.StatusBadRequest, signupResponse{Message: "invalid data", Errors: validationErr.Fields})
	case errors.Is(err, ErrEmailTaken):
		httpx.JSON(w, http.StatusBadRequest, signupResponse{Message: "email already registered"})
	default:
		h.logger.Error("signup", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
