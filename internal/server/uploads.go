package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// saveImages copies uploaded images into the upload directory under random
// names and returns their public URLs.
func (s *Server) saveImages(files []*multipart.FileHeader) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.cfg.UploadDir == "" {
		return nil, fmt.Errorf("%w: image uploads are disabled", errBadRequest)
	}
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !imageExtensions[ext] {
			s.removeUploads(urls)
			return nil, fmt.Errorf("%w: %s is not an image", errBadRequest, fh.Filename)
		}

		name := uuid.NewString() + ext
		if err := saveFile(fh, filepath.Join(s.cfg.UploadDir, name)); err != nil {
			s.removeUploads(urls)
			return nil, err
		}
		urls = append(urls, path.Join("/uploads", name))
	}
	return urls, nil
}

func saveFile(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return out.Close()
}

func (s *Server) removeUploads(urls []string) {
	for _, u := range urls {
		p := filepath.Join(s.cfg.UploadDir, path.Base(u))
		if err := os.Remove(p); err != nil {
			s.logger.Warn("remove upload", zap.String("path", p), zap.Error(err))
		}
	}
}
