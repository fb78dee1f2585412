package service

import (
	"context"
	"log/slog"
	"roofing-photo-sync/internal/queue"
	"time"
)

// PurgeCompletedPhotos deletes synced entries whose retention window has
// passed, one batch at a time, until none are left.
func PurgeCompletedPhotos(ctx context.Context, store *queue.Store, batchSize int) int64 {
	slog.Info("Memulai pembersihan foto yang sudah tersinkron...", "batch_size", batchSize)

	var total int64
	for {
		if ctx.Err() != nil {
			slog.Info("Pembersihan dihentikan oleh sinyal shutdown.", "dihapus", total)
			return total
		}

		deleted, err := store.PurgeCompleted(ctx, time.Now(), batchSize)
		if err != nil {
			slog.Error("Pembersihan gagal pada tahap DB", "error", err)
			return total
		}
		total += deleted

		if deleted < int64(batchSize) {
			break
		}
	}

	if total > 0 {
		slog.Info("Pembersihan foto tersinkron selesai.", "dihapus", total)
	} else {
		slog.Info("Pembersihan: Tidak ada foto yang melewati masa simpan.")
	}
	return total
}
