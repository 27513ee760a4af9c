package storage

import (
	"fmt"
	"math/rand"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
)

// ImageStore is the narrow interface the core uses for uploaded images.
// Implementations own the physical layout; callers only get back the public
// path to store in the database.
type ImageStore interface {
	Save(c *gin.Context, file *multipart.FileHeader, subdir string) (string, error)
}

// DiskStorage writes uploads under baseDir/<subdir> and serves them from
// /uploads/<subdir>.
type DiskStorage struct {
	baseDir string
}

// NewDiskStorage creates the upload directories if needed.
func NewDiskStorage(baseDir string, subdirs ...string) (*DiskStorage, error) {
	for _, subdir := range subdirs {
		dir := filepath.Join(baseDir, subdir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
		}
	}
	return &DiskStorage{baseDir: baseDir}, nil
}

// Save stores one uploaded file under a collision-resistant name and
// returns its public path.
func (s *DiskStorage) Save(c *gin.Context, file *multipart.FileHeader, subdir string) (string, error) {
	name := fmt.Sprintf("%d-%d%s", time.Now().UnixMilli(), rand.Int63n(1_000_000_000), filepath.Ext(file.Filename))
	dst := filepath.Join(s.baseDir, subdir, name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return "", fmt.Errorf("failed to store upload %s: %w", file.Filename, err)
	}
	return "/uploads/" + subdir + "/" + name, nil
}
