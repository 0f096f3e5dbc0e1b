package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"vitrina/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioService interface {
	EnsureBucketExists(ctx context.Context) error
	Upload(ctx context.Context, objectName string, reader io.Reader, objectSize int64, contentType string) (string, error)
	Fetch(ctx context.Context, objectName string) ([]byte, error)
	Remove(ctx context.Context, objectName string) error
	// ObjectNameFromURL maps a canonical public URL back to its object name,
	// or returns false when the URL does not belong to this store.
	ObjectNameFromURL(url string) (string, bool)
}

type minioClient struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

func NewMinioService(cfg config.MinioConfig) (MinioService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	publicBase := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicBase = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &minioClient{client: client, bucket: cfg.Bucket, publicBase: publicBase}, nil
}

func (m *minioClient) EnsureBucketExists(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// Upload stores the object and returns its canonical public URL.
func (m *minioClient) Upload(ctx context.Context, objectName string, reader io.Reader, objectSize int64, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, objectSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return m.publicBase + "/" + objectName, nil
}

func (m *minioClient) Fetch(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *minioClient) Remove(ctx context.Context, objectName string) error {
	return m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{})
}

func (m *minioClient) ObjectNameFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, m.publicBase+"/") {
		return "", false
	}
	return strings.TrimPrefix(url, m.publicBase+"/"), true
}
