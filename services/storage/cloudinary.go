package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// CloudinaryUploader stores attachments in one Cloudinary folder.
type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryUploader(cld *cloudinary.Cloudinary, folder string) *CloudinaryUploader {
	return &CloudinaryUploader{cld: cld, folder: folder}
}

// Upload sends the asset and returns its secure URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, a Asset) (string, error) {
	if a.Content == nil {
		return "", fmt.Errorf("CloudinaryUploader: asset %q has no content", a.Name)
	}
	params := uploader.UploadParams{
		Folder:         u.folder,
		PublicID:       publicID(a.Name),
		ResourceType:   resourceType(a.ContentType),
		UniqueFilename: api.Bool(false),
		Overwrite:      api.Bool(false),
	}
	result, err := u.cld.Upload.Upload(ctx, a.Content, params)
	if err != nil {
		return "", fmt.Errorf("CloudinaryUploader: failed to upload file: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("CloudinaryUploader: upload rejected: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("CloudinaryUploader: no URL returned")
	}
	return result.SecureURL, nil
}

func publicID(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	if base == "" || base == "." {
		return uuid.New().String()
	}
	return fmt.Sprintf("%s_%s", uuid.New().String()[:8], base)
}

func resourceType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"), strings.HasPrefix(contentType, "audio/"):
		return "video"
	}
	return "raw"
}
