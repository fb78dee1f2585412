package photosync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// ErrTriggerUnavailable is returned when background sync was selected but its
// loop is not running.
var ErrTriggerUnavailable = errors.New("background sync tidak berjalan")

// SyncTrigger asks for a processing pass after an entry is enqueued.
type SyncTrigger interface {
	Trigger(ctx context.Context) error
}

// ImmediateTrigger starts a pass right away when the device is online.
type ImmediateTrigger struct {
	processor *Processor
	online    func() bool
}

func NewImmediateTrigger(processor *Processor, online func() bool) *ImmediateTrigger {
	return &ImmediateTrigger{processor: processor, online: online}
}

func (t *ImmediateTrigger) Trigger(ctx context.Context) error {
	if !t.online() {
		slog.Info("Perangkat offline, foto menunggu jaringan tersedia.")
		return nil
	}
	t.processor.Kick()
	return nil
}

// BackgroundSync defers passes to a dedicated loop. A registration that the
// loop does not accept within the timeout falls back to the foreground
// trigger.
type BackgroundSync struct {
	processor *Processor
	online    func() bool
	timeout   time.Duration
	fallback  SyncTrigger

	wake    chan struct{}
	running atomic.Bool
}

func NewBackgroundSync(processor *Processor, online func() bool, timeout time.Duration, fallback SyncTrigger) *BackgroundSync {
	return &BackgroundSync{
		processor: processor,
		online:    online,
		timeout:   timeout,
		fallback:  fallback,
		wake:      make(chan struct{}),
	}
}

// Run serves registrations until ctx is done.
func (b *BackgroundSync) Run(ctx context.Context) {
	b.running.Store(true)
	defer b.running.Store(false)

	slog.Info("Background sync aktif.")
	for {
		select {
		case <-ctx.Done():
			slog.Info("Background sync berhenti.")
			return
		case <-b.wake:
			if !b.online() {
				slog.Info("Background sync ditunda sampai perangkat online.")
				continue
			}
			if _, ok := b.processor.runPass(ctx); !ok {
				slog.Info("Processor sudah ditutup, background sync diabaikan.")
			}
		}
	}
}

func (b *BackgroundSync) Trigger(ctx context.Context) error {
	if err := b.register(ctx); err != nil {
		slog.Warn("Registrasi background sync gagal, beralih ke sinkronisasi langsung", "error", err)
		return b.fallback.Trigger(ctx)
	}
	return nil
}

func (b *BackgroundSync) register(ctx context.Context) error {
	if !b.running.Load() {
		return ErrTriggerUnavailable
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case b.wake <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("registrasi background sync melebihi batas waktu %s", b.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SelectTrigger picks the background trigger when the runtime supports it and
// the immediate one otherwise. The choice is made once at startup.
func SelectTrigger(backgroundCapable bool, background *BackgroundSync, immediate *ImmediateTrigger) SyncTrigger {
	if backgroundCapable && background != nil {
		return background
	}
	return immediate
}
