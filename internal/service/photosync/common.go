package photosync

import (
	"context"
	"log/slog"
	"roofing-photo-sync/internal/model"
)

func (p *Processor) handleSuccess(ctx context.Context, task *model.QueuedPhoto, remotePath, remoteURL string) {
	purgeAfter := p.now().Add(p.cfg.Retention)
	if err := p.store.MarkCompleted(ctx, task.LocalID, remotePath, remoteURL, purgeAfter); err != nil {
		slog.Error("KRITIS: Foto terunggah tapi gagal memperbarui antrean lokal",
			"local_id", task.LocalID,
			"path", remotePath,
			"error", err,
		)
		return
	}
	slog.Info("Foto berhasil disinkronkan", "local_id", task.LocalID, "path", remotePath)
}

// handleFailure records a failed attempt and returns cause unchanged. Entries
// with retries left go back to pending and a delayed pass is scheduled.
func (p *Processor) handleFailure(ctx context.Context, task *model.QueuedPhoto, cause error) error {
	newAttempts := task.Attempts + 1
	errorMessage := cause.Error()

	if p.policy.Exhausted(newAttempts) {
		slog.Error("Foto gagal permanen, dipindahkan ke DLQ",
			"local_id", task.LocalID,
			"attempts", newAttempts,
			"error", errorMessage,
		)
		if err := p.store.MarkFailed(ctx, task, newAttempts, errorMessage); err != nil {
			slog.Error("KRITIS: Gagal memindahkan foto ke DLQ", "local_id", task.LocalID, "error", err)
		}
		return cause
	}

	delay := p.policy.Delay(newAttempts)
	slog.Warn("Sinkronisasi foto gagal, akan dicoba lagi",
		"local_id", task.LocalID,
		"attempts", newAttempts,
		"delay", delay.String(),
		"error", errorMessage,
	)
	if err := p.store.MarkRetry(ctx, task.LocalID, newAttempts, errorMessage); err != nil {
		slog.Error("KRITIS: Gagal mengembalikan foto ke antrean", "local_id", task.LocalID, "error", err)
		return cause
	}

	p.scheduleRetry(delay)
	return cause
}
