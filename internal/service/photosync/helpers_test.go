package photosync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"roofing-photo-sync/internal/constant"
	"roofing-photo-sync/internal/database"
	"roofing-photo-sync/internal/model"
	"roofing-photo-sync/internal/queue"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errNetworkDown = errors.New("network down")

type fakeObjects struct {
	mu       sync.Mutex
	objects  map[string][]byte
	deleted  []string
	puts     int
	failNext int
	failErr  error
	failWhen func(key string) bool
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) PutNew(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.puts++
	if f.failNext > 0 {
		f.failNext--
		return errNetworkDown
	}
	if f.failErr != nil {
		return f.failErr
	}
	if f.failWhen != nil && f.failWhen(key) {
		return errNetworkDown
	}
	if _, ok := f.objects[key]; ok {
		return fmt.Errorf("object %s already exists", key)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (f *fakeObjects) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func (f *fakeObjects) putCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

type fakeRecorder struct {
	mu   sync.Mutex
	rows []model.Photo
	err  error
}

func (f *fakeRecorder) InsertPhoto(ctx context.Context, photo *model.Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	f.rows = append(f.rows, *photo)
	return nil
}

func (f *fakeRecorder) photos() []model.Photo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Photo(nil), f.rows...)
}

type fakeSession struct {
	actor string
	err   error
}

func (f *fakeSession) Actor(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.actor, nil
}

type fakeStats struct {
	mu        sync.Mutex
	published []queue.Stats
}

func (f *fakeStats) Publish(ctx context.Context, stats queue.Stats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, stats)
	return nil
}

func (f *fakeStats) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

type fakeTimer struct {
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type scheduledRetry struct {
	delay time.Duration
	timer *fakeTimer
	fn    func()
}

// fakeScheduler captures retry timers so tests fire them by hand.
type fakeScheduler struct {
	mu      sync.Mutex
	pending []scheduledRetry
	delays  []time.Duration
}

func (s *fakeScheduler) afterFunc(d time.Duration, f func()) timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{}
	s.pending = append(s.pending, scheduledRetry{delay: d, timer: t, fn: f})
	s.delays = append(s.delays, d)
	return t
}

func (s *fakeScheduler) scheduledDelays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func (s *fakeScheduler) fireNext(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	require.NotEmpty(t, s.pending, "no retry scheduled")
	next := s.pending[0]
	s.pending = s.pending[1:]
	s.mu.Unlock()

	if !next.timer.stopped {
		next.fn()
	}
}

func (s *fakeScheduler) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

type harness struct {
	db        *gorm.DB
	store     *queue.Store
	objects   *fakeObjects
	recorder  *fakeRecorder
	session   *fakeSession
	stats     *fakeStats
	scheduler *fakeScheduler
	processor *Processor
	now       time.Time
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	db, err := database.OpenQueueStore(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	if cfg.Retention == 0 {
		cfg.Retention = 24 * time.Hour
	}

	h := &harness{
		db:        db,
		store:     queue.NewStore(db),
		objects:   newFakeObjects(),
		recorder:  &fakeRecorder{},
		session:   &fakeSession{actor: "user-42"},
		stats:     &fakeStats{},
		scheduler: &fakeScheduler{},
		now:       time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}

	h.processor = NewProcessor(cfg, Deps{
		Store:    h.store,
		Objects:  h.objects,
		Recorder: h.recorder,
		Session:  h.session,
		Stats:    h.stats,
	})
	h.processor.afterFunc = h.scheduler.afterFunc
	h.processor.now = func() time.Time { return h.now }
	t.Cleanup(h.processor.Close)

	return h
}

func (h *harness) enqueue(t *testing.T, fileName string, notes string) *model.QueuedPhoto {
	t.Helper()
	entry := &model.QueuedPhoto{
		LocalID:   uuid.NewString(),
		FileData:  []byte("jpeg:" + fileName),
		FileName:  fileName,
		FileType:  "image/jpeg",
		FileSize:  int64(len("jpeg:" + fileName)),
		ContactID: "contact-7",
		TenantID:  "tenant-3",
		Metadata:  model.NewMetadata(model.PhotoMetadata{Notes: notes, CapturedAt: h.now}),
		Status:    constant.PhotoStatusPending,
	}
	require.NoError(t, h.store.Put(context.Background(), entry))
	return entry
}

func (h *harness) get(t *testing.T, localID string) *model.QueuedPhoto {
	t.Helper()
	entry, err := h.store.Get(context.Background(), localID)
	require.NoError(t, err)
	return entry
}

func lastError(entry *model.QueuedPhoto) string {
	if entry.LastError == nil {
		return ""
	}
	return *entry.LastError
}

func hasKeySuffix(keys map[string][]byte, suffix string) bool {
	for k := range keys {
		if strings.HasSuffix(k, suffix) {
			return true
		}
	}
	return false
}

func itoa(n int64) string {
	return fmt.Sprintf("%d", n)
}
