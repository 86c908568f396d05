// Package media uploads images to an external media host.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Upload folders.
const (
	FolderPostThumbnails = "blog-post-thumbnails"
	FolderProfileImages  = "user-profile-images"
)

// Media errors.
var (
	ErrUploadsDisabled = errors.New("image uploads are not configured")
	ErrUploadFailed    = errors.New("image upload failed")
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	UploadImage(ctx context.Context, r io.Reader, folder string) (string, error)
}

// CloudinaryConfig contains Cloudinary credentials.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// CloudinaryUploader uploads images to Cloudinary.
type CloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryUploader creates a Cloudinary-backed uploader.
func NewCloudinaryUploader(cfg CloudinaryConfig) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("create cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true

	return &CloudinaryUploader{cld: cld}, nil
}

// UploadImage uploads r into folder and returns the secure URL.
func (u *CloudinaryUploader) UploadImage(ctx context.Context, r io.Reader, folder string) (string, error) {
	resp, err := u.cld.Upload.Upload(ctx, r, uploader.UploadParams{Folder: folder})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("%w: %s", ErrUploadFailed, resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("%w: empty url in response", ErrUploadFailed)
	}
	return resp.SecureURL, nil
}

// DisabledUploader rejects every upload.
type DisabledUploader struct{}

// UploadImage always returns ErrUploadsDisabled.
func (DisabledUploader) UploadImage(context.Context, io.Reader, string) (string, error) {
	return "", ErrUploadsDisabled
}
