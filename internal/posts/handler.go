package posts

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bloghub/blog-api/internal/access"
	"github.com/bloghub/blog-api/internal/pkg/authctx"
	"github.com/bloghub/blog-api/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var errorMappings = append([]httputil.ErrorMapping{
	{Error: ErrPostNotFound, Status: http.StatusNotFound},
	{Error: ErrEmptyUpdate, Status: http.StatusBadRequest},
}, access.ErrorMappings()...)

// Handler handles HTTP requests for the posts module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new posts handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: httputil.NewValidator(),
	}
}

// RegisterPublicRoutes registers read-only post routes.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/posts", h.ListPosts)
	r.Get("/posts/{id}", h.GetPost)
}

// RegisterRoutes registers routes that require authentication.
// Role checks happen in the service.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/posts", h.CreatePost)
	r.Put("/posts/{id}", h.UpdatePost)
	r.Delete("/posts/{id}", h.DeletePost)
}

// CreatePostRequest represents the request body for creating a post.
type CreatePostRequest struct {
	Title        string  `json:"title" validate:"required,min=1,max=255"`
	Content      string  `json:"content" validate:"required"`
	ThumbnailURL *string `json:"thumbnail_url" validate:"omitempty,url"`
	Featured     bool    `json:"featured"`
}

// UpdatePostRequest represents the request body for a partial post update.
type UpdatePostRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=1,max=255"`
	Content      *string `json:"content" validate:"omitempty,min=1"`
	ThumbnailURL *string `json:"thumbnail_url" validate:"omitempty,max=2048"`
	Featured     *bool   `json:"featured"`
}

// ListPosts handles GET /posts.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	var filter ListFilter

	if authorID := r.URL.Query().Get("author_id"); authorID != "" {
		if _, err := uuid.Parse(authorID); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid author_id")
			return
		}
		filter.AuthorID = authorID
	}

	if featured := r.URL.Query().Get("featured"); featured != "" {
		v, err := strconv.ParseBool(featured)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid featured")
			return
		}
		filter.Featured = &v
	}

	result, err := h.service.ListPosts(r.Context(), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// GetPost handles GET /posts/{id}.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	post, err := h.service.GetPost(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, post)
}

// CreatePost handles POST /posts.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	post, err := h.service.CreatePost(r.Context(), authctx.PrincipalFromContext(r.Context()), CreateInput(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, post)
}

// UpdatePost handles PUT /posts/{id}.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	var req UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	post, err := h.service.UpdatePost(r.Context(), authctx.PrincipalFromContext(r.Context()), id, UpdateInput(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, post)
}

// DeletePost handles DELETE /posts/{id}.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeletePost(r.Context(), authctx.PrincipalFromContext(r.Context()), id); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// postID reads the {id} path parameter. Malformed IDs cannot match any post.
func postID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.Error(w, http.StatusNotFound, ErrPostNotFound.Error())
		return "", false
	}
	return id, true
}
