package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archive keeps a copy of flagged media so an operator can audit a mute after
// the original message is deleted.
type Archive struct {
	client *minio.Client
	bucket string
}

func NewArchive(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Archive, error) {
	endpoint = strings.TrimSpace(endpoint)
	bucket = strings.TrimSpace(bucket)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(accessKey), strings.TrimSpace(secretKey), ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return &Archive{client: client, bucket: bucket}, nil
}

// Put stores the payload under flagged/<chat>/<uuid> and returns the object
// key.
func (a *Archive) Put(ctx context.Context, chatID int64, payload []byte, contentType string) (string, error) {
	if a == nil || a.client == nil {
		return "", fmt.Errorf("s3 archive is not initialized")
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty payload")
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("flagged/%d/%s", chatID, uuid.NewString())
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put flagged object: %w", err)
	}
	return key, nil
}
