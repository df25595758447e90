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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	payload := []byte(`{"start_date":"2025-01-01","end_date":"2025-01-07"}`)
	require.NoError(t, store.Upload(ctx, "production-data", payload))

	got, err := store.Download(ctx, "production-data")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	present, err := store.Exists(ctx, "production-data")
	require.NoError(t, err)
	assert.True(t, present)
}

func TestLocalStore_MissingKey(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Download(ctx, "never-uploaded")
	assert.ErrorIs(t, err, ErrNotFound)

	present, err := store.Exists(ctx, "never-uploaded")
	require.NoError(t, err)
	assert.False(t, present)
}

func TestLocalStore_UploadReplacesDocument(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "factory-memory", []byte(`{"v":1}`)))
	require.NoError(t, store.Upload(ctx, "factory-memory", []byte(`{"v":2}`)))

	got, err := store.Download(ctx, "factory-memory")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), got)
}

func TestLocalStore_RejectsTraversalKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "..", "../etc", "a/b", `a\b`} {
		_, err := store.Download(ctx, key)
		assert.Error(t, err, "key %q must be rejected", key)
	}
}

func TestLocalStore_CanceledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Download(ctx, "production-data")
	assert.ErrorIs(t, err, context.Canceled)
}
