// Package storage provides the object-store client used for log records
// and attachments. Records are JSON blobs addressed by hierarchical
// keys; attachments are opaque binaries read back through presigned
// URLs generated on demand.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	errMissingEndpoint  = errors.New("storage: endpoint is required")
	errMissingAccessKey = errors.New("storage: access key is required")
	errMissingSecretKey = errors.New("storage: secret key is required")
)

// ClientConfig bundles the settings for an S3-compatible object store.
type ClientConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// Client wraps a MinIO client with the four operations the service needs.
type Client struct {
	api *minio.Client
}

// NewClient constructs an object-store client from validated configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errMissingEndpoint
	}
	if cfg.AccessKey == "" {
		return nil, errMissingAccessKey
	}
	if cfg.SecretKey == "" {
		return nil, errMissingSecretKey
	}

	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: client init: %w", err)
	}

	return &Client{api: api}, nil
}

// Put uploads the reader's contents under the given bucket/key.
func (c *Client) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.api.PutObject(ctx, bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("storage: put %s/%s: %w", bucket, key, err)
	}
	return nil
}

// List returns all object keys under the prefix. Listing is recursive
// and the order of returned keys is not guaranteed.
func (c *Client) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	keys := make([]string, 0, 64)
	for object := range c.api.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("storage: list %s/%s: %w", bucket, prefix, object.Err)
		}
		keys = append(keys, object.Key)
	}
	return keys, nil
}

// Get fetches the full object body.
func (c *Client) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	object, err := c.api.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("storage: get %s/%s: %w", bucket, key, err)
	}
	defer object.Close()

	body, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s/%s: %w", bucket, key, err)
	}
	return body, nil
}

// PresignGet returns a time-limited read URL for the object.
func (c *Client) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	signed, err := c.api.PresignedGetObject(ctx, bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("storage: presign %s/%s: %w", bucket, key, err)
	}
	return signed.String(), nil
}
