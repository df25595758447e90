// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore stores documents as objects in a single GCS bucket.
//
// Thread Safety: GCSStore is safe for concurrent use; the underlying client
// maintains its own connection pool.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a GCS-backed blob store.
//
// # Description
//
// When credentialsFile is non-empty it must point at a readable service
// account key; otherwise application default credentials are used. The
// supplied context should carry the connect timeout so that client setup
// cannot hang indefinitely.
//
// # Inputs
//
//   - ctx: Context bounding client construction.
//   - bucket: The bucket holding all factory documents.
//   - credentialsFile: Optional path to a service account key.
//
// # Outputs
//
//   - *GCSStore: The configured store.
//   - error: Non-nil if the key is missing or the client cannot be built.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", credentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	slog.Info("GCS blob store initialized", "bucket", bucket)
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Download implements BlobStore.
func (s *GCSStore) Download(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("gs://%s/%s: %w", s.bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open GCS object %q: %w", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object %q: %w", key, err)
	}
	return data, nil
}

// Upload implements BlobStore.
//
// The GCS writer commits the object only on a successful Close, so a failed
// or cancelled upload never leaves a partial document behind.
func (s *GCSStore) Upload(ctx context.Context, key string, data []byte) error {
	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = "application/json"
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write GCS object %q: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %q: %w", key, err)
	}
	return nil
}

// Exists implements BlobStore.
func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat GCS object %q: %w", key, err)
	}
	return true, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
