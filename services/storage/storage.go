package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BlobStore keeps uploaded files. The core only ever sees the returned
// filename.
type BlobStore interface {
	Store(ctx context.Context, ownerID string, r io.Reader, originalName string) (string, error)
	Delete(ctx context.Context, filename string) error
	URL(filename string) (string, error)
}

// CloudinaryStore implements BlobStore on Cloudinary.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
	logger *zap.Logger
}

// NewCloudinaryStore builds a store from account credentials.
func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string, logger *zap.Logger) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("CloudinaryStore: failed to initialize client: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: folder, logger: logger}, nil
}

// Store uploads r under <folder>/<ownerID>/ and returns the public id.
func (s *CloudinaryStore) Store(ctx context.Context, ownerID string, r io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
	default:
		return "", fmt.Errorf("CloudinaryStore: unsupported file type %q", ext)
	}

	publicID := uuid.New().String()
	result, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:   path.Join(s.folder, ownerID),
		PublicID: publicID,
	})
	if err != nil {
		return "", fmt.Errorf("CloudinaryStore: failed to upload file: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("CloudinaryStore: upload rejected: %s", result.Error.Message)
	}
	if result.PublicID == "" {
		return "", fmt.Errorf("CloudinaryStore: no public ID returned")
	}
	s.logger.Debug("file stored", zap.String("publicId", result.PublicID), zap.String("owner", ownerID))
	return result.PublicID, nil
}

// Delete removes a file by public id.
func (s *CloudinaryStore) Delete(ctx context.Context, filename string) error {
	if _, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: filename}); err != nil {
		return fmt.Errorf("CloudinaryStore: failed to delete file: %w", err)
	}
	return nil
}

// URL returns the public delivery URL of an image.
func (s *CloudinaryStore) URL(filename string) (string, error) {
	img, err := s.cld.Image(filename)
	if err != nil {
		return "", fmt.Errorf("CloudinaryStore: failed to get asset: %w", err)
	}
	return img.String()
}
