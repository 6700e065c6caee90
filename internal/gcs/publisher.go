// Package gcs publishes finished dataset artifacts to a Cloud Storage
// bucket. Uploads are precondition-guarded and retried with exponential
// backoff; publishing is always optional and runs after local writes
// succeed.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/Lllllllleong/docpairflow/internal/models"
)

const (
	maxRetries     = 4
	initialBackoff = 1 * time.Second
	uploadTimeout  = 50 * time.Second
)

// ParseURL splits a gs://bucket/prefix URL into bucket and prefix.
func ParseURL(raw string) (bucket, prefix string, err error) {
	if !strings.HasPrefix(raw, "gs://") {
		return "", "", fmt.Errorf("publish URL must start with gs://, got %q", raw)
	}
	rest := strings.TrimPrefix(raw, "gs://")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("publish URL has no bucket: %q", raw)
	}
	bucket = parts[0]
	if len(parts) == 2 {
		prefix = strings.Trim(parts[1], "/")
	}
	return bucket, prefix, nil
}

// Publisher uploads local files under one bucket prefix.
type Publisher struct {
	client   *storage.Client
	bucket   string
	prefix   string
	onExists models.OnExists
}

// NewPublisher creates a publisher for a gs:// URL.
func NewPublisher(ctx context.Context, rawURL string, onExists models.OnExists) (*Publisher, error) {
	bucket, prefix, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &Publisher{
		client:   client,
		bucket:   bucket,
		prefix:   prefix,
		onExists: onExists,
	}, nil
}

// Close releases the underlying client.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// ExistingObjects lists the object names already under the prefix, so the
// on-exists policy can be applied before uploading.
func (p *Publisher) ExistingObjects(ctx context.Context) (map[string]bool, error) {
	query := &storage.Query{}
	if p.prefix != "" {
		query.Prefix = p.prefix + "/"
	}

	existing := make(map[string]bool)
	it := p.client.Bucket(p.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under gs://%s/%s: %w", p.bucket, p.prefix, err)
		}
		existing[attrs.Name] = true
	}
	return existing, nil
}

// Publish uploads each local file under the prefix, applying the on-exists
// policy per object.
func (p *Publisher) Publish(ctx context.Context, paths []string) error {
	existing, err := p.ExistingObjects(ctx)
	if err != nil {
		return err
	}

	for _, localPath := range paths {
		object := p.objectName(filepath.Base(localPath))
		if existing[object] {
			switch p.onExists {
			case models.OnExistsSkip:
				slog.Info("Object already exists. Skipping.", "gcsObject", object)
				continue
			case models.OnExistsSuffix:
				object = p.objectName(suffixedName(filepath.Base(localPath)))
			}
		}
		if err := p.uploadFile(ctx, localPath, object); err != nil {
			return fmt.Errorf("failed to publish %s: %w", filepath.Base(localPath), err)
		}
		slog.Info("Published artifact.", "gcsBucket", p.bucket, "gcsObject", object)
	}
	return nil
}

func (p *Publisher) objectName(base string) string {
	return path.Join(p.prefix, base)
}

func suffixedName(base string) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return stem + time.Now().UTC().Format("_20060102_150405") + ext
}

// uploadFile streams one local file to the bucket, retrying transient
// failures. With the skip policy the write carries a DoesNotExist
// precondition; a 412 means another writer got there first and is not a
// failure.
func (p *Publisher) uploadFile(ctx context.Context, localPath, destObject string) error {
	var backoff = initialBackoff
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			localFile, err := os.Open(localPath)
			if err != nil {
				return fmt.Errorf("could not open local file %s: %w", localPath, err)
			}
			defer localFile.Close()

			writeCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
			defer cancel()

			object := p.client.Bucket(p.bucket).Object(destObject)
			if p.onExists == models.OnExistsSkip {
				object = object.If(storage.Conditions{DoesNotExist: true})
			}
			writer := object.NewWriter(writeCtx)

			if _, err := io.Copy(writer, localFile); err != nil {
				_ = writer.Close()
				return fmt.Errorf("io.Copy to GCS failed: %w", err)
			}
			if err := writer.Close(); err != nil {
				return fmt.Errorf("failed to finalize GCS write: %w", err)
			}
			return nil
		}()

		if err == nil {
			return nil
		}

		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 412 {
			slog.Info("Object already exists. Skipping.", "gcsObject", destObject)
			return nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", destObject,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", destObject, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", destObject, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", destObject, lastErr)
}
