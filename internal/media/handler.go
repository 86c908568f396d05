package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bloghub/blog-api/internal/access"
	"github.com/bloghub/blog-api/internal/domain"
	"github.com/bloghub/blog-api/internal/pkg/authctx"
	"github.com/bloghub/blog-api/internal/pkg/ctxlog"
	"github.com/bloghub/blog-api/internal/pkg/httputil"
	"github.com/bloghub/blog-api/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
)

const (
	// DefaultMaxUploadSize bounds the accepted image size.
	DefaultMaxUploadSize = 10 << 20

	formField = "image"
	sniffLen  = 512
)

var (
	errMissingImage = errors.New("image file is required")
	errNotAnImage   = errors.New("file is not an image")
	errTooLarge     = errors.New("image is too large")
)

var errorMappings = append([]httputil.ErrorMapping{
	{Error: errMissingImage, Status: http.StatusBadRequest},
	{Error: errNotAnImage, Status: http.StatusBadRequest},
	{Error: errTooLarge, Status: http.StatusRequestEntityTooLarge},
	{Error: ErrUploadsDisabled, Status: http.StatusServiceUnavailable},
	{Error: ErrUploadFailed, Status: http.StatusBadGateway, Message: "image upload failed"},
}, access.ErrorMappings()...)

// Authorizer decides whether a caller may act on a resource.
type Authorizer interface {
	Authorize(ctx context.Context, caller *domain.Principal, req access.Request) error
}

// Handler handles image upload requests.
type Handler struct {
	uploader Uploader
	authz    Authorizer
	maxSize  int64
}

// NewHandler creates a new media handler. maxSize <= 0 selects DefaultMaxUploadSize.
func NewHandler(uploader Uploader, authz Authorizer, maxSize int64) *Handler {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &Handler{uploader: uploader, authz: authz, maxSize: maxSize}
}

// RegisterRoutes registers upload routes. They require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/images/upload", func(r chi.Router) {
		r.Post("/post-thumbnail", h.upload(FolderPostThumbnails))
		r.Post("/profile-image", h.upload(FolderProfileImages))
	})
}

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	ImageURL string `json:"image_url"`
}

func (h *Handler) upload(folder string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := h.authz.Authorize(ctx, authctx.PrincipalFromContext(ctx), access.Request{
			Resource: access.ResourceImage,
			Action:   access.ActionCreate,
		}); err != nil {
			httputil.HandleError(ctx, w, err, errorMappings)
			return
		}

		url, err := h.receive(w, r, folder)
		if err != nil {
			metrics.ImageUploads.WithLabelValues(folder, "error").Inc()
			httputil.HandleError(ctx, w, err, errorMappings)
			return
		}

		metrics.ImageUploads.WithLabelValues(folder, "success").Inc()
		ctxlog.FromContext(ctx).Info("image uploaded", "folder", folder)
		httputil.Success(w, http.StatusCreated, UploadResponse{ImageURL: url})
	}
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request, folder string) (string, error) {
	// Allow a little room for multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+(1<<20))

	file, header, err := r.FormFile(formField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", errTooLarge
		}
		return "", errMissingImage
	}
	defer func() { _ = file.Close() }()

	if header.Size > h.maxSize {
		return "", errTooLarge
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return "", errMissingImage
		}
		return "", err
	}
	head = head[:n]

	if !strings.HasPrefix(http.DetectContentType(head), "image/") {
		return "", errNotAnImage
	}

	return h.uploader.UploadImage(r.Context(), io.MultiReader(bytes.NewReader(head), file), folder)
}
