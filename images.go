package pubdraft

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/eringen/pubdraft/upload"
)

const (
	maxImageSide = 1600
	jpegQuality  = 90
	uploadsURL   = "/uploads"
)

// processImage decodes an image from src, scales it to fit within
// maxImageSide on both axes, and encodes it as JPEG. Returns metadata and
// the encoded bytes.
func processImage(src io.Reader, originalName string) (Image, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return Image{}, nil, fmt.Errorf("%w: %v", upload.ErrNotImage, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxImageSide || h > maxImageSide {
		nw, nh := fitWithin(w, h, maxImageSide)
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = nw, nh
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Image{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return Image{
		Filename:     slugifyFilename(originalName) + ".jpg",
		OriginalName: originalName,
		Width:        w,
		Height:       h,
		Size:         buf.Len(),
		UploadedAt:   time.Now().UTC().Format(time.RFC3339),
	}, buf.Bytes(), nil
}

// fitWithin scales w x h down so that neither side exceeds limit, keeping the
// aspect ratio.
func fitWithin(w, h, limit int) (int, int) {
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

// slugifyFilename converts a filename (without extension) to a URL-safe slug.
func slugifyFilename(name string) string {
	ext := filepath.Ext(name)
	base := Slugify(strings.TrimSuffix(name, ext))
	if base == "" {
		base = "image-" + uuid.NewString()[:8]
	}
	return base
}

// imageService stores uploaded images on disk and records them in the
// store. It is the file storage collaborator of every editor session.
type imageService struct {
	mu    sync.Mutex
	dir   string
	store *Store
}

// Upload validates, scales and stores an image, returning its public URL.
func (s *imageService) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: %q", upload.ErrNotImage, contentType)
	}
	if len(data) > upload.MaxFileSize {
		return "", fmt.Errorf("%w: %d bytes", upload.ErrTooLarge, len(data))
	}
	img, encoded, err := processImage(bytes.NewReader(data), name)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureUniqueFilename(ctx, &img); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, img.Filename), encoded, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := s.store.SaveImage(ctx, img); err != nil {
		return "", err
	}
	return path.Join(uploadsURL, img.Filename), nil
}

// ensureUniqueFilename appends a counter if filename already exists in the
// directory or database.
func (s *imageService) ensureUniqueFilename(ctx context.Context, img *Image) error {
	base := strings.TrimSuffix(img.Filename, ".jpg")
	candidate := img.Filename
	for counter := 2; ; counter++ {
		_, statErr := os.Stat(filepath.Join(s.dir, candidate))
		exists, err := s.store.ImageExists(ctx, candidate)
		if err != nil {
			return err
		}
		if statErr != nil && !exists {
			break
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, counter)
	}
	img.Filename = candidate
	return nil
}

func (a *App) handleUploadFile(c echo.Context) error {
	if !a.limiter.Allow(c.RealIP()) {
		return a.rateLimited(c)
	}
	file, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, CodeBadRequest)
	}
	if file.Size > upload.MaxFileSize {
		return fail(c, http.StatusRequestEntityTooLarge, CodeFileTooLarge)
	}
	data, err := readFormFile(file)
	if err != nil {
		return err
	}
	url, err := a.images.Upload(c.Request().Context(), file.Filename, file.Header.Get(echo.HeaderContentType), data)
	if err != nil {
		return uploadError(c, err)
	}
	return respond(c, map[string]string{"url": url})
}

// rateLimited answers 429 with the seconds until the next upload is allowed.
func (a *App) rateLimited(c echo.Context) error {
	wait := a.limiter.RetryAfter(c.RealIP())
	c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	return fail(c, http.StatusTooManyRequests, CodeRateLimited)
}

func uploadError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, upload.ErrNotImage):
		return fail(c, http.StatusBadRequest, CodeNotImage)
	case errors.Is(err, upload.ErrTooLarge):
		return fail(c, http.StatusRequestEntityTooLarge, CodeFileTooLarge)
	}
	return err
}
