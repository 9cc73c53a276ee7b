package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vaultstream/vaultstream/internal/config"
	apperrors "github.com/vaultstream/vaultstream/internal/errors"
)

// minioBackend stores objects in an S3-compatible bucket, grounded on the
// teacher's minio-go client construction (internal/handler/system.go).
type minioBackend struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// NewMinio builds the MinIO/S3 ObjectStorage backend and ensures the
// configured bucket exists.
func NewMinio(cfg config.StorageConfig) (*minioBackend, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKeyID, cfg.MinioSecretAccessKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindFatal, "creating minio client", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "checking minio bucket", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, apperrors.Wrap(apperrors.KindTransient, "creating minio bucket", err)
		}
	}

	return &minioBackend{client: client, bucket: cfg.MinioBucket, publicBaseURL: cfg.PublicBaseURL}, nil
}

func (b *minioBackend) Put(ctx context.Context, data io.Reader, size int64, contentType, ext string) (string, string, error) {
	buf, err := readAllForDigest(data)
	if err != nil {
		return "", "", apperrors.Wrap(apperrors.KindTransient, "reading media for storage", err)
	}
	key := digestKey(buf, ext)

	exists, err := b.Exists(ctx, key)
	if err != nil {
		return "", "", err
	}
	if exists {
		return key, b.PublicURL(key), nil
	}

	_, err = b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(buf), int64(len(buf)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", "", apperrors.Wrap(apperrors.KindTransient, "uploading media to minio", err)
	}
	return key, b.PublicURL(key), nil
}

func (b *minioBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	errResp := minio.ToErrorResponse(err)
	if errResp.Code == "NoSuchKey" {
		return false, nil
	}
	return false, apperrors.Wrap(apperrors.KindTransient, "checking minio object", err)
}

func (b *minioBackend) PublicURL(key string) string {
	return b.publicBaseURL + "/" + b.bucket + "/" + key
}
