// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package factorydata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianFactory/services/storage"
)

// ErrNoSnapshot is returned when no production document has been uploaded
// yet. It is an expected condition, distinct from the store being
// unreachable.
var ErrNoSnapshot = errors.New("no production snapshot available")

// Loader reads and writes the production snapshot through a blob store.
//
// Thread Safety: Loader is safe for concurrent use if the store is.
type Loader struct {
	store storage.BlobStore
	key   string
}

// NewLoader creates a snapshot loader bound to one logical key.
func NewLoader(store storage.BlobStore, key string) *Loader {
	return &Loader{store: store, key: key}
}

// Load fetches and decodes the full snapshot.
//
// # Outputs
//
//   - *Snapshot: The decoded document.
//   - error: ErrNoSnapshot when the key is absent; *storage.UnavailableError
//     when the store exhausted its retries; a decode error for corrupt data.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	data, err := l.store.Download(ctx, l.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode production snapshot %q: %w", l.key, err)
	}

	slog.Debug("Loaded production snapshot",
		slog.String("key", l.key),
		slog.Int("days", len(snap.Production)),
	)
	return &snap, nil
}

// Save encodes and uploads the full snapshot, replacing any previous
// version.
func (l *Loader) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode production snapshot: %w", err)
	}
	if err := l.store.Upload(ctx, l.key, data); err != nil {
		return fmt.Errorf("failed to upload production snapshot %q: %w", l.key, err)
	}
	return nil
}

// DateRange returns the ISO date bounds of the current snapshot.
//
// # Outputs
//
//   - string, string: Start and end dates as YYYY-MM-DD.
//   - error: ErrNoSnapshot when no document has been uploaded.
func (l *Loader) DateRange(ctx context.Context) (string, string, error) {
	snap, err := l.Load(ctx)
	if err != nil {
		return "", "", err
	}
	start, end := snap.DateRangeISO()
	return start, end, nil
}

// Exists reports whether a snapshot has been uploaded.
func (l *Loader) Exists(ctx context.Context) (bool, error) {
	return l.store.Exists(ctx, l.key)
}
