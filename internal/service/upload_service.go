package service

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

// DefaultMaxUploadBytes bounds an uploaded image when no limit is set.
const DefaultMaxUploadBytes = 5 * 1024 * 1024

var imageExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadService stores images under dataDir/uploads.
type UploadService struct {
	dir      string
	maxBytes int64
	log      *zap.Logger
}

func NewUploadService(dataDir string, maxBytes int64, log *zap.Logger) *UploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &UploadService{dir: filepath.Join(dataDir, "uploads"), maxBytes: maxBytes, log: log}
}

// Dir is the directory uploads are written to.
func (s *UploadService) Dir() string {
	return s.dir
}

// Upload is a stored image.
type Upload struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

// SaveImage stores the image read from r. The type is sniffed from the
// content; the client-supplied name is ignored.
func (s *UploadService) SaveImage(r io.Reader) (*Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return s.save(data)
}

// SaveDataURL stores a base64 image, with or without a data: prefix.
func (s *UploadService) SaveDataURL(dataURL string) (*Upload, error) {
	data, err := decodeBase64Image(dataURL)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", domain.ErrInvalidUpload)
	}
	return s.save(data)
}

func (s *UploadService) save(data []byte) (*Upload, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file: %w", domain.ErrInvalidUpload)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes: %w", s.maxBytes, domain.ErrInvalidUpload)
	}
	ct := http.DetectContentType(data)
	ext, ok := imageExt[ct]
	if !ok {
		return nil, fmt.Errorf("unsupported type %s: %w", ct, domain.ErrInvalidUpload)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("mkdir for upload: %w", err)
	}
	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}
	s.log.Info("image uploaded", zap.String("name", name), zap.String("type", ct), zap.Int("bytes", len(data)))
	return &Upload{URL: "/uploads/" + name, Name: name, ContentType: ct, Size: len(data)}, nil
}

func decodeBase64Image(dataURL string) ([]byte, error) {
	encoded := dataURL
	if strings.HasPrefix(dataURL, "data:") {
		comma := strings.IndexByte(dataURL, ',')
		if comma == -1 || !strings.HasSuffix(dataURL[:comma], ";base64") {
			return nil, fmt.Errorf("not a base64 data URL")
		}
		encoded = dataURL[comma+1:]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
}
