package photosync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"roofing-photo-sync/internal/constant"
	"roofing-photo-sync/internal/model"

	"gorm.io/datatypes"
)

var (
	// ErrMissingPayload is returned for queue entries stored without image bytes.
	ErrMissingPayload = errors.New(constant.MissingPayloadError)

	errNotClaimed = errors.New("entri antrean sedang diproses oleh pemanggil lain")
)

// syncPhoto drives one entry through syncing to completed, pending or failed.
// The snapshot only names the entry; every decision uses the claimed row.
func (p *Processor) syncPhoto(ctx context.Context, snapshot model.QueuedPhoto) error {
	task, err := p.store.Claim(ctx, snapshot.LocalID, p.cfg.MaxRetries)
	if err != nil {
		slog.Error("Gagal mengklaim foto", "local_id", snapshot.LocalID, "error", err)
		return fmt.Errorf("gagal mengklaim entri %s: %w", snapshot.LocalID, err)
	}
	if task == nil {
		slog.Debug("Foto sudah diklaim pemanggil lain, dilewati", "local_id", snapshot.LocalID)
		return errNotClaimed
	}

	bookkeeping := context.WithoutCancel(ctx)

	if !task.HasPayload() {
		slog.Error("Data foto tidak ada di antrean lokal", "local_id", task.LocalID)
		if err := p.store.MarkMissingPayload(bookkeeping, task.LocalID); err != nil {
			slog.Error("KRITIS: Gagal menandai foto tanpa data", "local_id", task.LocalID, "error", err)
		}
		return ErrMissingPayload
	}

	remotePath, remoteURL, err := p.commitPhoto(ctx, task)
	if err != nil {
		return p.handleFailure(bookkeeping, task, err)
	}

	p.handleSuccess(bookkeeping, task, remotePath, remoteURL)
	return nil
}

// commitPhoto uploads the object and records the remote row. The row is only
// written after the object exists.
func (p *Processor) commitPhoto(ctx context.Context, task *model.QueuedPhoto) (string, string, error) {
	actor, err := p.session.Actor(ctx)
	if err != nil {
		return "", "", fmt.Errorf("sesi tidak terautentikasi: %w", err)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", "", fmt.Errorf("menunggu giliran unggah: %w", err)
		}
	}

	payload := task.Payload()
	storagePath := StoragePath(task.TenantID, task.ContactID, p.now(), payload.Name)

	if err := p.objects.PutNew(ctx, storagePath, payload.Reader(), payload.Size(), payload.MIMEType()); err != nil {
		return "", "", fmt.Errorf("gagal mengunggah foto: %w", err)
	}
	publicURL := p.objects.PublicURL(storagePath)

	thumbPath, thumbURL := p.uploadThumbnail(ctx, storagePath, payload)

	meta := task.Metadata.Data()
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		p.discardObjects(ctx, storagePath, thumbPath)
		return "", "", fmt.Errorf("gagal menyusun metadata foto: %w", err)
	}
	notes := ParseNotes(meta.Notes)

	photo := &model.Photo{
		TenantID:     task.TenantID,
		ContactID:    task.ContactID,
		ProjectID:    task.ProjectID,
		FilePath:     storagePath,
		FileURL:      publicURL,
		ThumbnailURL: thumbURL,
		FileName:     payload.Name,
		FileType:     payload.MIMEType(),
		FileSize:     payload.Size(),
		UploadedBy:   actor,
		Metadata:     datatypes.JSON(metaJSON),
		DamageType:   notes.DamageType,
		Severity:     notes.Severity,
		PhotoOrder:   notes.PhotoOrder,
		ClaimID:      notes.ClaimID,
	}

	if err := p.recorder.InsertPhoto(ctx, photo); err != nil {
		p.discardObjects(ctx, storagePath, thumbPath)
		return "", "", fmt.Errorf("gagal menyimpan data foto: %w", err)
	}

	return storagePath, publicURL, nil
}

// uploadThumbnail stores a WebP preview next to the original. Any error only
// drops the preview.
func (p *Processor) uploadThumbnail(ctx context.Context, storagePath string, payload model.Payload) (string, *string) {
	if p.thumbs == nil {
		return "", nil
	}

	rc, err := p.thumbs.Thumbnail(ctx, payload.Reader())
	if err != nil {
		slog.Warn("Gagal membuat thumbnail, dilewati", "path", storagePath, "error", err)
		return "", nil
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		slog.Warn("Gagal membaca thumbnail, dilewati", "path", storagePath, "error", err)
		return "", nil
	}

	thumbPath := storagePath + constant.ThumbnailSuffix
	if err := p.objects.PutNew(ctx, thumbPath, bytes.NewReader(data), int64(len(data)), "image/webp"); err != nil {
		slog.Warn("Gagal mengunggah thumbnail, dilewati", "path", thumbPath, "error", err)
		return "", nil
	}

	thumbURL := p.objects.PublicURL(thumbPath)
	return thumbPath, &thumbURL
}

func (p *Processor) discardObjects(ctx context.Context, keys ...string) {
	cleanupCtx := context.WithoutCancel(ctx)
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := p.objects.Delete(cleanupCtx, key); err != nil {
			slog.Warn("Gagal menghapus objek yatim", "path", key, "error", err)
		}
	}
}
