package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"smart-audio/internal/config"
)

// Publisher copies local files into object storage
type Publisher interface {
	Publish(ctx context.Context, key, filePath, contentType string) (string, error)
	Bucket() string
}

// MinioPublisher implements Publisher using MinIO
type MinioPublisher struct {
	client   *minio.Client
	bucket   string
	endpoint string
	useSSL   bool
}

// NewMinioPublisher creates a publisher and makes sure its bucket exists
func NewMinioPublisher(ctx context.Context, cfg config.MinioSettings) (*MinioPublisher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinioPublisher{client: client, bucket: cfg.Bucket, endpoint: cfg.Endpoint, useSSL: cfg.UseSSL}, nil
}

// Publish uploads filePath under key
func (p *MinioPublisher) Publish(ctx context.Context, key, filePath, contentType string) (string, error) {
	_, err := p.client.FPutObject(ctx, p.bucket, key, filePath, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"published-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to MinIO: %w", err)
	}
	return p.ObjectURL(key), nil
}

func (p *MinioPublisher) Bucket() string {
	return p.bucket
}

// ObjectURL returns the URL for accessing an object
func (p *MinioPublisher) ObjectURL(key string) string {
	protocol := "http"
	if p.useSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, p.endpoint, p.bucket, key)
}

// MockPublisher records published keys without uploading (for testing)
type MockPublisher struct {
	mu        sync.Mutex
	Published map[string]string
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Published: make(map[string]string)}
}

func (p *MockPublisher) Publish(_ context.Context, key, filePath, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Published[key] = filePath
	return "/storage/" + key, nil
}

func (p *MockPublisher) Bucket() string {
	return "mock"
}
