package identity

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bloghub/blog-api/internal/domain"
	"github.com/bloghub/blog-api/internal/identity/password"
	"github.com/bloghub/blog-api/internal/pkg/authctx"
	"github.com/bloghub/blog-api/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrUserNotFound, Status: http.StatusNotFound},
	{Error: ErrEmailExists, Status: http.StatusConflict},
	{Error: ErrInvalidCredentials, Status: http.StatusUnauthorized},
	{Error: ErrInvalidToken, Status: http.StatusUnauthorized, Message: "invalid or expired token"},
	{Error: ErrInvalidDisplayName, Status: http.StatusBadRequest},
	{Error: password.ErrPasswordTooLong, Status: http.StatusBadRequest, Message: password.ErrPasswordTooLong.Error()},
}

// Handler handles HTTP requests for the identity module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new identity handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: httputil.NewValidator(),
	}
}

// RegisterRoutes registers public identity routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})
	r.Get("/users/{id}", h.GetUser)
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/users/profile", h.GetProfile)
	r.Put("/users/profile", h.UpdateProfile)
}

// RegisterAdminRoutes registers routes that require the admin role.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/users", h.ListUsers)
}

// RegisterRequest represents registration request body.
type RegisterRequest struct {
	Email           string  `json:"email" validate:"required,email,max=255"`
	DisplayName     string  `json:"display_name" validate:"required,max=100"`
	Password        string  `json:"password" validate:"required,min=6,max=72"`
	ProfileImageURL *string `json:"profile_image_url" validate:"omitempty,url"`
}

// LoginRequest represents login request body.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// UpdateProfileRequest represents profile update request body.
type UpdateProfileRequest struct {
	DisplayName     *string `json:"display_name" validate:"omitempty,min=1,max=100"`
	ProfileImageURL *string `json:"profile_image_url" validate:"omitempty,url,max=2048"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	result, err := h.service.Register(r.Context(), RegisterInput(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, newAuthResponse(result))
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), LoginInput(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, newAuthResponse(result))
}

// GetProfile handles GET /users/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	principal := authctx.PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), principal.UserID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /users/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal := authctx.PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), principal, UpdateProfileInput(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// GetUser handles GET /users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.Error(w, http.StatusNotFound, ErrUserNotFound.Error())
		return
	}

	user, err := h.service.GetUserByID(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, users)
}

func newAuthResponse(result *AuthResult) AuthResponse {
	return AuthResponse{
		Token:     result.Token.AccessToken,
		TokenType: result.Token.TokenType,
		ExpiresAt: result.Token.ExpiresAt,
		User:      result.User,
	}
}
