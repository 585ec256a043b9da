package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("blob storage is not configured")

// BlobStore stores an uploaded file and returns its public URL.
type BlobStore interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// UploadSigner produces parameters for a browser to upload straight to the blob store.
type UploadSigner interface {
	SignUpload(now time.Time) (*SignedUpload, error)
}

type SignedUpload struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	APIKey    string `json:"api_key"`
	CloudName string `json:"cloud_name"`
	Folder    string `json:"folder"`
}

type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
	log    *zap.Logger
}

func NewCloudinaryStore(cloudinaryURL, folder string, log *zap.Logger) (*CloudinaryStore, error) {
	if cloudinaryURL == "" {
		return nil, ErrNotConfigured
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("initialize cloudinary: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CloudinaryStore{cld: cld, folder: folder, log: log}, nil
}

// Upload stores r under a random public id inside the configured folder.
func (s *CloudinaryStore) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	publicID := uuid.NewString()
	if base := strings.TrimSuffix(path.Base(filename), path.Ext(filename)); base != "" && base != "." && base != "/" {
		publicID = publicID + "-" + sanitize(base)
	}

	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("upload %q: %w", filename, err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("upload %q: %s", filename, res.Error.Message)
	}
	s.log.Debug("image uploaded", zap.String("public_id", res.PublicID))
	return res.SecureURL, nil
}

func (s *CloudinaryStore) SignUpload(now time.Time) (*SignedUpload, error) {
	params, err := api.StructToParams(uploader.UploadParams{Folder: s.folder})
	if err != nil {
		return nil, fmt.Errorf("prepare signature params: %w", err)
	}
	timestamp := now.Unix()
	params.Set("timestamp", strconv.FormatInt(timestamp, 10))

	signature, err := api.SignParameters(params, s.cld.Config.Cloud.APISecret)
	if err != nil {
		return nil, fmt.Errorf("sign upload params: %w", err)
	}
	return &SignedUpload{
		Signature: signature,
		Timestamp: timestamp,
		APIKey:    s.cld.Config.Cloud.APIKey,
		CloudName: s.cld.Config.Cloud.CloudName,
		Folder:    s.folder,
	}, nil
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
		if b.Len() >= 40 {
			break
		}
	}
	return b.String()
}
