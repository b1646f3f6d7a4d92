package aws

import (
	"context"
	"fmt"
)

// Client defines the AWS operations used to publish run artifacts.
type Client interface {
	VerifyCredentials(ctx context.Context) (*CallerIdentity, error)
	UploadToS3(ctx context.Context, bucket, key string, data []byte) error
	UploadFileToS3(ctx context.Context, bucket, key, localPath string) error
	DeleteS3Prefix(ctx context.Context, bucket, prefix string) error
}

// CallerIdentity holds AWS STS caller identity information.
type CallerIdentity struct {
	Account string
	ARN     string
	UserID  string
}

// Preflight verifies credentials before any upload is attempted.
func Preflight(ctx context.Context, client Client, bucket string) (*CallerIdentity, error) {
	if bucket == "" {
		return nil, fmt.Errorf("no S3 bucket configured")
	}
	id, err := client.VerifyCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("verifying AWS credentials: %w", err)
	}
	return id, nil
}
