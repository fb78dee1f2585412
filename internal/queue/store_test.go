package queue

import (
	"context"
	"path/filepath"
	"roofing-photo-sync/internal/constant"
	"roofing-photo-sync/internal/database"
	"roofing-photo-sync/internal/model"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.OpenQueueStore(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewStore(db)
}

func newEntry(status string, attempts int) *model.QueuedPhoto {
	return &model.QueuedPhoto{
		LocalID:   uuid.NewString(),
		FileData:  []byte("jpeg-bytes"),
		FileName:  "roof.jpg",
		FileType:  "image/jpeg",
		FileSize:  10,
		ContactID: "contact-1",
		TenantID:  "tenant-1",
		Status:    status,
		Attempts:  attempts,
	}
}

func TestStorePutAndGet(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	lat := -7.25
	entry := newEntry("", 0)
	entry.Metadata = model.NewMetadata(model.PhotoMetadata{Latitude: &lat, Notes: "north slope"})
	require.NoError(t, store.Put(ctx, entry))

	got, err := store.Get(ctx, entry.LocalID)
	require.NoError(t, err)
	assert.Equal(t, constant.PhotoStatusPending, got.Status)
	assert.Equal(t, []byte("jpeg-bytes"), got.FileData)
	assert.Equal(t, "north slope", got.Metadata.Data().Notes)
	require.NotNil(t, got.Metadata.Data().Latitude)
	assert.InDelta(t, -7.25, *got.Metadata.Data().Latitude, 0.0001)
	assert.NotZero(t, got.CreatedAt)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreFindEligible(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	pending := newEntry(constant.PhotoStatusPending, 0)
	retrying := newEntry(constant.PhotoStatusPending, 2)
	failedWithBudget := newEntry(constant.PhotoStatusFailed, 0)
	exhausted := newEntry(constant.PhotoStatusFailed, 3)
	completed := newEntry(constant.PhotoStatusCompleted, 0)
	syncing := newEntry(constant.PhotoStatusSyncing, 0)
	for _, e := range []*model.QueuedPhoto{pending, retrying, failedWithBudget, exhausted, completed, syncing} {
		require.NoError(t, store.Put(ctx, e))
	}

	entries, err := store.FindEligible(ctx, 3, 100)
	require.NoError(t, err)

	var ids []string
	for _, e := range entries {
		ids = append(ids, e.LocalID)
	}
	assert.ElementsMatch(t, []string{pending.LocalID, retrying.LocalID, failedWithBudget.LocalID}, ids)
}

func TestStoreFindEligibleEmpty(t *testing.T) {
	store := setupTestStore(t)

	entries, err := store.FindEligible(context.Background(), 3, 100)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStoreClaimIsExclusive(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	entry := newEntry(constant.PhotoStatusPending, 0)
	require.NoError(t, store.Put(ctx, entry))

	claimed, err := store.Claim(ctx, entry.LocalID, 3)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, constant.PhotoStatusSyncing, claimed.Status)

	again, err := store.Claim(ctx, entry.LocalID, 3)
	require.NoError(t, err)
	assert.Nil(t, again, "second claim must not succeed while syncing")

	got, err := store.Get(ctx, entry.LocalID)
	require.NoError(t, err)
	assert.Equal(t, constant.PhotoStatusSyncing, got.Status)
	assert.NotNil(t, got.LastAttempt)
}

func TestStoreClaimRejectsExhaustedEntry(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	entry := newEntry(constant.PhotoStatusFailed, 3)
	require.NoError(t, store.Put(ctx, entry))

	claimed, err := store.Claim(ctx, entry.LocalID, 3)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestStoreClaimReturnsCurrentRow(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	entry := newEntry(constant.PhotoStatusPending, 0)
	require.NoError(t, store.Put(ctx, entry))
	require.NoError(t, store.MarkRetry(ctx, entry.LocalID, 2, "timeout"))

	claimed, err := store.Claim(ctx, entry.LocalID, 3)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, 2, claimed.Attempts)
	assert.Equal(t, []byte("jpeg-bytes"), claimed.FileData)
	require.NotNil(t, claimed.LastAttempt)
}

func TestStoreMarkFailedWritesDeadLetter(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	entry := newEntry(constant.PhotoStatusSyncing, 2)
	require.NoError(t, store.Put(ctx, entry))

	require.NoError(t, store.MarkFailed(ctx, entry, 3, "upload timed out"))

	got, err := store.Get(ctx, entry.LocalID)
	require.NoError(t, err)
	assert.Equal(t, constant.PhotoStatusFailed, got.Status)
	assert.Equal(t, 3, got.Attempts)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "upload timed out", *got.LastError)
	assert.NotEmpty(t, got.FileData, "payload must survive a terminal failure")

	letters, err := store.DeadLetters(ctx, entry.LocalID)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, 3, letters[0].Attempts)
	assert.Equal(t, "tenant-1", letters[0].TenantID)
}

func TestStoreMarkMissingPayloadKeepsAttempts(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	entry := newEntry(constant.PhotoStatusSyncing, 1)
	entry.FileData = nil
	require.NoError(t, store.Put(ctx, entry))

	require.NoError(t, store.MarkMissingPayload(ctx, entry.LocalID))

	got, err := store.Get(ctx, entry.LocalID)
	require.NoError(t, err)
	assert.Equal(t, constant.PhotoStatusFailed, got.Status)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.LastError)
	assert.Equal(t, constant.MissingPayloadError, *got.LastError)
}

func TestStoreResetFailed(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	failed := newEntry(constant.PhotoStatusSyncing, 0)
	require.NoError(t, store.Put(ctx, failed))
	require.NoError(t, store.MarkFailed(ctx, failed, 3, "boom"))
	other := newEntry(constant.PhotoStatusPending, 1)
	require.NoError(t, store.Put(ctx, other))

	n, err := store.ResetFailed(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := store.Get(ctx, failed.LocalID)
	require.NoError(t, err)
	assert.Equal(t, constant.PhotoStatusPending, got.Status)
	assert.Equal(t, 0, got.Attempts)
	assert.Nil(t, got.LastError)

	untouched, err := store.Get(ctx, other.LocalID)
	require.NoError(t, err)
	assert.Equal(t, 1, untouched.Attempts)
}

func TestStoreReleaseStuck(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	stuck := newEntry(constant.PhotoStatusSyncing, 1)
	fresh := newEntry(constant.PhotoStatusSyncing, 1)
	require.NoError(t, store.Put(ctx, stuck))
	require.NoError(t, store.Put(ctx, fresh))

	old := time.Now().Add(-time.Hour).Unix()
	require.NoError(t, store.db.Model(&model.QueuedPhoto{}).
		Where("local_id = ?", stuck.LocalID).
		UpdateColumn("updated_at", old).Error)

	n, err := store.ReleaseStuck(ctx, time.Now().Add(-15*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := store.Get(ctx, stuck.LocalID)
	require.NoError(t, err)
	assert.Equal(t, constant.PhotoStatusPending, got.Status)
	assert.Equal(t, 1, got.Attempts)

	still, err := store.Get(ctx, fresh.LocalID)
	require.NoError(t, err)
	assert.Equal(t, constant.PhotoStatusSyncing, still.Status)
}

func TestStorePurgeCompleted(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	now := time.Now()

	due := newEntry(constant.PhotoStatusSyncing, 0)
	notDue := newEntry(constant.PhotoStatusSyncing, 0)
	pending := newEntry(constant.PhotoStatusPending, 0)
	for _, e := range []*model.QueuedPhoto{due, notDue, pending} {
		require.NoError(t, store.Put(ctx, e))
	}
	require.NoError(t, store.MarkCompleted(ctx, due.LocalID, "t/c/1_a.jpg", "https://cdn/t/c/1_a.jpg", now.Add(-time.Minute)))
	require.NoError(t, store.MarkCompleted(ctx, notDue.LocalID, "t/c/2_b.jpg", "https://cdn/t/c/2_b.jpg", now.Add(24*time.Hour)))

	n, err := store.PurgeCompleted(ctx, now, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = store.Get(ctx, due.LocalID)
	assert.ErrorIs(t, err, ErrNotFound)

	kept, err := store.Get(ctx, notDue.LocalID)
	require.NoError(t, err)
	require.NotNil(t, kept.RemoteURL)
	assert.Equal(t, "https://cdn/t/c/2_b.jpg", *kept.RemoteURL)

	_, err = store.Get(ctx, pending.LocalID)
	assert.NoError(t, err)
}

func TestStoreListOmitsPayloadAndStats(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	require.NoError(t, store.Put(ctx, newEntry(constant.PhotoStatusPending, 0)))
	require.NoError(t, store.Put(ctx, newEntry(constant.PhotoStatusPending, 1)))
	require.NoError(t, store.Put(ctx, newEntry(constant.PhotoStatusFailed, 3)))

	entries, err := store.List(ctx, constant.PhotoStatusPending)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Empty(t, e.FileData)
	}

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Pending)
	assert.EqualValues(t, 1, stats.Failed)
	assert.EqualValues(t, 3, stats.Total())
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	entry := newEntry(constant.PhotoStatusPending, 0)
	require.NoError(t, store.Put(ctx, entry))

	require.NoError(t, store.Delete(ctx, entry.LocalID))
	assert.ErrorIs(t, store.Delete(ctx, entry.LocalID), ErrNotFound)
}
