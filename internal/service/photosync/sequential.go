package photosync

import (
	"context"
	"log/slog"
	"roofing-photo-sync/internal/model"
)

func (p *Processor) runSequential(ctx context.Context, tasks []model.QueuedPhoto) PassResult {
	var result PassResult

	for _, task := range tasks {
		select {
		case <-ctx.Done():
			slog.Info("Proses sekuensial dibatalkan oleh sinyal shutdown.")
			slog.Info("Hasil parsial proses sekuensial.",
				"berhasil", result.Succeeded,
				"gagal", result.Failed,
			)
			return result
		default:
		}

		slog.Debug("Menyinkronkan foto", "mode", "sekuensial", "local_id", task.LocalID)

		result.record(p.syncPhoto(ctx, task))
	}

	slog.Info("Proses sekuensial selesai.",
		"berhasil", result.Succeeded,
		"gagal", result.Failed,
		"dilewati", result.Skipped,
	)
	return result
}
