package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// MediaPrefix is where gin serves the disk storage from
const MediaPrefix = "/media/"

type DiskStorage struct {
	// BasePath is a directory that is writable by the current process
	BasePath  string
	baseURL   string
	dirs      map[string]bool
	dirsMutex sync.Mutex
}

func NewDiskStorage(basePath, publicBaseURL string) *DiskStorage {
	return &DiskStorage{
		BasePath: basePath,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
		dirs:     make(map[string]bool, 10),
	}
}

func (s *DiskStorage) createDir(dir string) error {
	s.dirsMutex.Lock()
	defer s.dirsMutex.Unlock()

	if ok := s.dirs[dir]; ok {
		return nil
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return err
	}
	s.dirs[dir] = true
	return nil
}

func (s *DiskStorage) getFullPath(path string) (string, error) {
	path, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.BasePath, filepath.FromSlash(path)), nil
}

func (s *DiskStorage) Upload(ctx context.Context, path string, reader io.Reader, mimeType string) error {
	fileName, err := s.getFullPath(path)
	if err != nil {
		return err
	}
	if err = s.createDir(filepath.Dir(fileName)); err != nil {
		return err
	}
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	_, err = io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(fileName)
	}
	return err
}

func (s *DiskStorage) PublicURL(path string) string {
	return s.baseURL + MediaPrefix + strings.TrimLeft(path, "/")
}

func (s *DiskStorage) PathFromURL(url string) (string, bool) {
	prefix := s.baseURL + MediaPrefix
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	path, err := cleanPath(strings.TrimPrefix(url, prefix))
	return path, err == nil
}

// Remove ignores files that are already gone
func (s *DiskStorage) Remove(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		fileName, err := s.getFullPath(path)
		if err == nil {
			err = os.Remove(fileName)
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
