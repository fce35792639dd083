package imagestore

import (
	"context"
	"fmt"

	"shop-service/internal/util"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Store deletes product images from object storage. Uploads are handled by
// the media gateway; this service only cleans up after product deletion.
type Store struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// New creates a new image store client
func New(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Store{
		client: client,
		bucket: bucket,
		logger: util.GetLogger(),
	}, nil
}

// DeleteImage removes an image object by filename. Returns false on failure;
// a missing object counts as deleted.
func (s *Store) DeleteImage(ctx context.Context, filename string) bool {
	err := s.client.RemoveObject(ctx, s.bucket, filename, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return true
		}
		s.logger.Error("Failed to delete image",
			zap.String("bucket", s.bucket),
			zap.String("filename", filename),
			zap.Error(err))
		return false
	}
	return true
}
