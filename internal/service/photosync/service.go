package photosync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"roofing-photo-sync/internal/constant"
	"roofing-photo-sync/internal/model"
	"roofing-photo-sync/internal/queue"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidRequest = errors.New("permintaan foto tidak valid")
	ErrEnqueue        = errors.New("gagal menyimpan foto ke antrean lokal")
)

type EnqueueRequest struct {
	File      model.Payload
	ContactID string
	TenantID  string
	ProjectID *string
	Metadata  model.PhotoMetadata
}

func (r EnqueueRequest) validate() error {
	switch {
	case r.TenantID == "":
		return fmt.Errorf("%w: tenant_id wajib diisi", ErrInvalidRequest)
	case r.ContactID == "":
		return fmt.Errorf("%w: contact_id wajib diisi", ErrInvalidRequest)
	case len(r.File.Data) == 0:
		return fmt.Errorf("%w: file foto kosong", ErrInvalidRequest)
	}
	return nil
}

// Service is the entry point for callers of the offline photo queue.
type Service struct {
	store     *queue.Store
	processor *Processor
	trigger   SyncTrigger

	newID func() string
	now   func() time.Time
}

func NewService(store *queue.Store, processor *Processor, trigger SyncTrigger) *Service {
	return &Service{
		store:     store,
		processor: processor,
		trigger:   trigger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Enqueue stores the photo durably and then asks for a sync. The returned
// local ID is valid even if the trigger could not start a pass.
func (s *Service) Enqueue(ctx context.Context, req EnqueueRequest) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}

	meta := req.Metadata
	if meta.CapturedAt.IsZero() {
		meta.CapturedAt = s.now().UTC()
	}

	entry := &model.QueuedPhoto{
		LocalID:   s.newID(),
		FileData:  req.File.Data,
		FileName:  req.File.Name,
		FileType:  req.File.MIMEType(),
		FileSize:  req.File.Size(),
		ContactID: req.ContactID,
		ProjectID: req.ProjectID,
		TenantID:  req.TenantID,
		Metadata:  model.NewMetadata(meta),
		Status:    constant.PhotoStatusPending,
	}

	if err := s.store.Put(ctx, entry); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEnqueue, err)
	}

	slog.Info("Foto masuk antrean offline",
		"local_id", entry.LocalID,
		"tenant_id", entry.TenantID,
		"contact_id", entry.ContactID,
		"size_bytes", entry.FileSize,
	)

	if err := s.trigger.Trigger(ctx); err != nil {
		slog.Warn("Gagal memicu sinkronisasi, foto tetap di antrean", "local_id", entry.LocalID, "error", err)
	}

	return entry.LocalID, nil
}

// RetryFailed gives every failed entry a fresh retry budget and starts a pass.
func (s *Service) RetryFailed(ctx context.Context) (int64, error) {
	reset, err := s.store.ResetFailed(ctx)
	if err != nil {
		return 0, fmt.Errorf("gagal mereset foto yang gagal: %w", err)
	}
	slog.Info("Foto gagal dikembalikan ke antrean", "jumlah", reset)

	s.processor.Kick()
	return reset, nil
}

func (s *Service) Stats(ctx context.Context) (queue.Stats, error) {
	return s.store.Stats(ctx)
}

func (s *Service) List(ctx context.Context, status string) ([]model.QueuedPhoto, error) {
	return s.store.List(ctx, status)
}

func (s *Service) Delete(ctx context.Context, localID string) error {
	return s.store.Delete(ctx, localID)
}

// DeadLetters returns the retry-exhaustion history of one entry, oldest first.
func (s *Service) DeadLetters(ctx context.Context, localID string) ([]model.PhotoDeadLetter, error) {
	if _, err := s.store.Get(ctx, localID); err != nil {
		return nil, err
	}
	return s.store.DeadLetters(ctx, localID)
}
