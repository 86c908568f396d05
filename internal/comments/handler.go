package comments

import (
	"encoding/json"
	"net/http"

	"github.com/bloghub/blog-api/internal/access"
	"github.com/bloghub/blog-api/internal/pkg/authctx"
	"github.com/bloghub/blog-api/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var errorMappings = append([]httputil.ErrorMapping{
	{Error: ErrCommentNotFound, Status: http.StatusNotFound},
	{Error: ErrPostNotFound, Status: http.StatusNotFound},
}, access.ErrorMappings()...)

// Handler handles HTTP requests for the comments module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new comments handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: httputil.NewValidator(),
	}
}

// RegisterPublicRoutes registers read-only comment routes.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/posts/{id}/comments", h.ListByPost)
	r.Get("/comments", h.ListByAuthor)
	r.Get("/comments/{id}", h.GetComment)
}

// RegisterRoutes registers routes that require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/posts/{id}/comments", h.CreateComment)
	r.Put("/comments/{id}", h.UpdateComment)
	r.Delete("/comments/{id}", h.DeleteComment)
}

// CommentRequest represents the body for creating or editing a comment.
type CommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=5000"`
}

// ListByPost handles GET /posts/{id}/comments.
func (h *Handler) ListByPost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(postID); err != nil {
		httputil.Error(w, http.StatusNotFound, ErrPostNotFound.Error())
		return
	}

	result, err := h.service.ListByPost(r.Context(), postID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// ListByAuthor handles GET /comments?author_id=.
func (h *Handler) ListByAuthor(w http.ResponseWriter, r *http.Request) {
	authorID := r.URL.Query().Get("author_id")
	if authorID == "" {
		httputil.Error(w, http.StatusBadRequest, "author_id is required")
		return
	}
	if _, err := uuid.Parse(authorID); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid author_id")
		return
	}

	result, err := h.service.ListByAuthor(r.Context(), authorID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// GetComment handles GET /comments/{id}.
func (h *Handler) GetComment(w http.ResponseWriter, r *http.Request) {
	id, ok := commentID(w, r)
	if !ok {
		return
	}

	comment, err := h.service.GetComment(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, comment)
}

// CreateComment handles POST /posts/{id}/comments.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(postID); err != nil {
		httputil.Error(w, http.StatusNotFound, ErrPostNotFound.Error())
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	comment, err := h.service.CreateComment(r.Context(), authctx.PrincipalFromContext(r.Context()), postID, req.Content)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, comment)
}

// UpdateComment handles PUT /comments/{id}.
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := commentID(w, r)
	if !ok {
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	comment, err := h.service.UpdateComment(r.Context(), authctx.PrincipalFromContext(r.Context()), id, req.Content)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, comment)
}

// DeleteComment handles DELETE /comments/{id}.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := commentID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteComment(r.Context(), authctx.PrincipalFromContext(r.Context()), id); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (CommentRequest, bool) {
	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return req, false
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return req, false
	}
	return req, true
}

func commentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.Error(w, http.StatusNotFound, ErrCommentNotFound.Error())
		return "", false
	}
	return id, true
}
