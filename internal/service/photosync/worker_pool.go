package photosync

import (
	"context"
	"log/slog"
	"roofing-photo-sync/internal/model"
	"sync"
)

type syncJob struct {
	task model.QueuedPhoto
}

type syncResult struct {
	task model.QueuedPhoto
	err  error
}

func (p *Processor) runWorkerPool(ctx context.Context, tasks []model.QueuedPhoto) PassResult {
	numWorkers := p.cfg.NumWorkers
	if numWorkers <= 0 || numWorkers > len(tasks) {
		numWorkers = len(tasks)
	}

	jobs := make(chan syncJob, len(tasks))
	results := make(chan syncResult, len(tasks))

	var wg sync.WaitGroup

	for i := 1; i <= numWorkers; i++ {
		wg.Add(1)
		go p.syncWorker(ctx, jobs, results, &wg, i)
	}

	go func() {
	DispatchLoop:
		for _, task := range tasks {
			select {
			case <-ctx.Done():
				slog.Warn("Shutdown diminta, berhenti mengirim foto ke worker pool.")
				break DispatchLoop
			case jobs <- syncJob{task: task}:
			}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var result PassResult
	for r := range results {
		result.record(r.err)
	}

	slog.Info("Proses worker pool selesai.",
		"berhasil", result.Succeeded,
		"gagal", result.Failed,
		"dilewati", result.Skipped,
		"workers", numWorkers,
	)
	return result
}

func (p *Processor) syncWorker(
	ctx context.Context,
	jobs <-chan syncJob,
	results chan<- syncResult,
	wg *sync.WaitGroup,
	workerID int,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}

			slog.Debug("Worker menyinkronkan foto",
				"worker_id", workerID,
				"local_id", job.task.LocalID,
			)

			err := p.syncPhoto(ctx, job.task)

			select {
			case <-ctx.Done():
				return
			case results <- syncResult{task: job.task, err: err}:
			}
		}
	}
}
