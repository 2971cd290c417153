package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cashflow-ai/cashflow/internal/platform/httpx"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

// Handler wires HTTP endpoints for registration and token flows.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	validator   *validator.Validate
	requireUser func(http.Handler) http.Handler
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		validator:   validator.New(),
		requireUser: RequireUser(service, logger),
	}
}

// RequireUser exposes the bearer middleware for other route groups.
func (h *Handler) RequireUser() func(http.Handler) http.Handler {
	return h.requireUser
}

// MountRoutes registers user routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(h.requireUser)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input RegisterInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		h.fail(w, "register user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, httpx.Envelope{Success: true, Data: user, Message: "User created successfully"})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input LoginInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	session, err := h.service.Login(r.Context(), input)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Invalid credentials")
			return
		}
		h.fail(w, "login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Data: session, Message: "Login successful"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), BearerToken(r)); err != nil {
		h.fail(w, "logout", err)
		return
	}
	httpx.Message(w, "Logged out")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	user, err := h.service.Me(r.Context(), userID)
	if err != nil {
		h.fail(w, "load current user", err)
		return
	}
	httpx.OK(w, http.StatusOK, user)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil && errors.Is(err, shared.ErrDependency) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
