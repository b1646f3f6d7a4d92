package aws

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
)

// ArtifactUploader publishes the files of a pipeline run to S3.
type ArtifactUploader struct {
	client Client
	bucket string
	prefix string
}

// NewArtifactUploader creates a new artifact uploader.
func NewArtifactUploader(client Client, bucket, prefix string) *ArtifactUploader {
	return &ArtifactUploader{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// RunArtifacts holds what a run produced.
type RunArtifacts struct {
	RunID  string
	Files  []string // local paths of the output tables
	Report []byte   // JSON run report
}

// UploadResult holds the S3 URIs of uploaded artifacts.
type UploadResult struct {
	RunURI    string
	LatestURI string
	Objects   []string
}

// RunPrefix returns the key prefix a run is stored under.
func (u *ArtifactUploader) RunPrefix(runID string) string {
	return path.Join(u.prefix, "runs", runID) + "/"
}

// LatestPrefix returns the key prefix that mirrors the most recent run.
func (u *ArtifactUploader) LatestPrefix() string {
	return path.Join(u.prefix, "latest") + "/"
}

// UploadRun uploads the artifacts under runs/<run id>/ and then replaces
// the contents of latest/ with the same objects.
func (u *ArtifactUploader) UploadRun(ctx context.Context, a RunArtifacts) (*UploadResult, error) {
	if a.RunID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	result := &UploadResult{
		RunURI:    u.uri(u.RunPrefix(a.RunID)),
		LatestURI: u.uri(u.LatestPrefix()),
	}

	runKeys, err := u.put(ctx, u.RunPrefix(a.RunID), a)
	if err != nil {
		return nil, err
	}
	for _, k := range runKeys {
		result.Objects = append(result.Objects, u.uri(k))
	}

	if err := u.client.DeleteS3Prefix(ctx, u.bucket, u.LatestPrefix()); err != nil {
		return nil, fmt.Errorf("clearing latest: %w", err)
	}
	if _, err := u.put(ctx, u.LatestPrefix(), a); err != nil {
		return nil, err
	}
	return result, nil
}

func (u *ArtifactUploader) put(ctx context.Context, prefix string, a RunArtifacts) ([]string, error) {
	keys := make([]string, 0, len(a.Files)+1)
	for _, f := range a.Files {
		key := path.Join(prefix, filepath.Base(f))
		if err := u.client.UploadFileToS3(ctx, u.bucket, key, f); err != nil {
			return nil, fmt.Errorf("uploading %s: %w", filepath.Base(f), err)
		}
		keys = append(keys, key)
	}
	if a.Report != nil {
		key := path.Join(prefix, "report.json")
		if err := u.client.UploadToS3(ctx, u.bucket, key, a.Report); err != nil {
			return nil, fmt.Errorf("uploading report: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (u *ArtifactUploader) uri(key string) string {
	return fmt.Sprintf("s3://%s/%s", u.bucket, key)
}
