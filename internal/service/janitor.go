package service

import (
	"context"
	"log/slog"
	"roofing-photo-sync/internal/queue"
	"time"
)

// RunJanitor returns entries stuck in syncing longer than threshold to
// pending, e.g. after the process died mid-upload.
func RunJanitor(ctx context.Context, store *queue.Store, threshold time.Duration) int64 {
	slog.Info("Memulai scheduler janitor...")

	released, err := store.ReleaseStuck(ctx, time.Now().Add(-threshold))
	if err != nil {
		slog.Error("Scheduler janitor gagal saat query database", "error", err)
		return 0
	}

	if released > 0 {
		slog.Warn("Janitor: Mereset foto yang macet", "jumlah", released)
	} else {
		slog.Info("Janitor: Tidak ada foto yang macet ditemukan.")
	}

	slog.Info("Scheduler janitor selesai.")
	return released
}
