package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"humorize/config"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrInvalidPath = errors.New("invalid storage path")

type StorageAPI interface {
	// Upload stores the content of reader under path
	Upload(ctx context.Context, path string, reader io.Reader, mimeType string) error
	// PublicURL is the address browsers load the object from
	PublicURL(path string) string
	// PathFromURL reverses PublicURL. False when url does not belong to this storage.
	PathFromURL(url string) (string, bool)
	// Remove deletes all paths it can and returns the joined errors of the others
	Remove(ctx context.Context, paths []string) error
}

// New creates the storage selected by the configuration
func New(cfg *config.Config) (StorageAPI, error) {
	switch cfg.StorageType {
	case config.StorageTypeDisk:
		return NewDiskStorage(cfg.StorageDir, cfg.PublicBaseURL), nil
	case config.StorageTypeS3:
		return NewS3Storage(&Bucket{
			Name:     cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   cfg.S3Prefix,
			Key:      cfg.S3Key,
			Secret:   cfg.S3Secret,
		})
	}
	return nil, fmt.Errorf("storage type unavailable: %s", cfg.StorageType)
}

// PhotoPath returns a fresh object path for a photo in a gallery
func PhotoPath(galleryID, ext string) string {
	return galleryID + "/" + uuid.NewString() + "." + ext
}

// RemoveLogged removes paths and only logs failures
func RemoveLogged(ctx context.Context, s StorageAPI, paths []string) {
	if len(paths) == 0 {
		return
	}
	if err := s.Remove(ctx, paths); err != nil {
		log.Warn().Err(err).Strs("paths", paths).Msg("StorageCleanupFailed")
	}
}

func cleanPath(path string) (string, error) {
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return "", ErrInvalidPath
	}
	for _, part := range strings.Split(path, "/") {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
		}
	}
	return path, nil
}
