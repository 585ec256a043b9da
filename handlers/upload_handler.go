// file: handlers/upload_handler.go
package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/smart_roommate/apperrors"
	"github.com/anjiri1684/smart_roommate/storage"
	"github.com/gofiber/fiber/v2"
)

const (
	MaxUploadFiles    = 6
	MaxUploadFileSize = 5 << 20
	// BodyLimit must fit a full batch of images plus multipart overhead.
	BodyLimit = MaxUploadFiles*MaxUploadFileSize + 1<<20
)

// Uploader is what the upload routes need from the blob store.
type Uploader interface {
	storage.BlobStore
	storage.UploadSigner
}

type UploadHandler struct {
	store Uploader
}

// NewUploadHandler accepts a nil store; uploads then fail with an internal error.
func NewUploadHandler(store Uploader) *UploadHandler {
	return &UploadHandler{store: store}
}

// UploadImages stores up to MaxUploadFiles "images" parts and returns their URLs.
func (h *UploadHandler) UploadImages(c *fiber.Ctx) error {
	if h.store == nil {
		return apperrors.Internal("Uploads are not configured", storage.ErrNotConfigured)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return apperrors.Validation("Expected a multipart form")
	}
	files := form.File["images"]
	if len(files) == 0 {
		return apperrors.Validation("No images uploaded.")
	}
	if len(files) > MaxUploadFiles {
		return apperrors.Validation(fmt.Sprintf("You can upload at most %d images.", MaxUploadFiles))
	}
	for _, fh := range files {
		if fh.Size > MaxUploadFileSize {
			return apperrors.Validation(fmt.Sprintf("%s is larger than 5MB.", fh.Filename))
		}
		if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			return apperrors.Validation(fmt.Sprintf("%s is not an image.", fh.Filename))
		}
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return apperrors.Internal("Failed to read upload", err)
		}
		url, err := h.store.Upload(c.UserContext(), fh.Filename, f)
		f.Close()
		if err != nil {
			return apperrors.Internal("Failed to upload image", err)
		}
		urls = append(urls, url)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"urls": urls})
}

// GenerateUploadSignature creates a secure signature for a frontend upload.
func (h *UploadHandler) GenerateUploadSignature(c *fiber.Ctx) error {
	if h.store == nil {
		return apperrors.Internal("Uploads are not configured", storage.ErrNotConfigured)
	}
	signed, err := h.store.SignUpload(time.Now())
	if err != nil {
		return apperrors.Internal("Failed to sign upload params", err)
	}
	return c.JSON(signed)
}
