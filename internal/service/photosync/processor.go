package photosync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"roofing-photo-sync/internal/model"
	"roofing-photo-sync/internal/queue"
	"roofing-photo-sync/internal/retry"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type ObjectStore interface {
	PutNew(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

type PhotoRecorder interface {
	InsertPhoto(ctx context.Context, photo *model.Photo) error
}

type Session interface {
	Actor(ctx context.Context) (string, error)
}

type Thumbnailer interface {
	Thumbnail(ctx context.Context, r io.Reader) (io.ReadCloser, error)
}

type StatsPublisher interface {
	Publish(ctx context.Context, stats queue.Stats) error
}

type Config struct {
	MaxRetries   int
	BaseDelay    time.Duration
	IsConcurrent bool
	NumWorkers   int
	BatchSize    int
	Retention    time.Duration
	UploadRate   float64
	UploadBurst  int
}

// Deps are the collaborators of a Processor. Thumbnailer and Stats are
// optional.
type Deps struct {
	Store       *queue.Store
	Objects     ObjectStore
	Recorder    PhotoRecorder
	Session     Session
	Thumbnailer Thumbnailer
	Stats       StatsPublisher
}

// PassResult tallies one processing pass.
type PassResult struct {
	Succeeded int
	Failed    int
	Skipped   int
}

func (r *PassResult) record(err error) {
	switch {
	case err == nil:
		r.Succeeded++
	case errors.Is(err, errNotClaimed):
		r.Skipped++
	default:
		r.Failed++
	}
}

type timer interface {
	Stop() bool
}

type Processor struct {
	cfg      Config
	policy   retry.Policy
	store    *queue.Store
	objects  ObjectStore
	recorder PhotoRecorder
	session  Session
	thumbs   Thumbnailer
	stats    StatsPublisher
	limiter  *rate.Limiter

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) timer

	baseCtx context.Context
	cancel  context.CancelFunc
	passes  sync.WaitGroup

	mu     sync.Mutex
	timers map[timer]struct{}
	closed bool
}

func NewProcessor(cfg Config, deps Deps) *Processor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}

	policy := retry.DefaultPolicy()
	if cfg.MaxRetries > 0 {
		policy.MaxAttempts = cfg.MaxRetries
	} else {
		cfg.MaxRetries = policy.MaxAttempts
	}
	if cfg.BaseDelay > 0 {
		policy.BaseDelay = cfg.BaseDelay
	}

	var limiter *rate.Limiter
	if cfg.UploadRate > 0 {
		burst := cfg.UploadBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.UploadRate), burst)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Processor{
		cfg:      cfg,
		policy:   policy,
		store:    deps.Store,
		objects:  deps.Objects,
		recorder: deps.Recorder,
		session:  deps.Session,
		thumbs:   deps.Thumbnailer,
		stats:    deps.Stats,
		limiter:  limiter,
		now:      time.Now,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
		baseCtx: ctx,
		cancel:  cancel,
		timers:  make(map[timer]struct{}),
	}
}

// ProcessQueue runs one pass over every eligible entry. Each entry succeeds or
// fails on its own; a pass with nothing to do changes nothing.
func (p *Processor) ProcessQueue(ctx context.Context) PassResult {
	tasks, err := p.store.FindEligible(ctx, p.cfg.MaxRetries, p.cfg.BatchSize)
	if err != nil {
		slog.Error("Gagal mengambil foto dari antrean lokal", "error", err)
		return PassResult{}
	}
	if len(tasks) == 0 {
		slog.Debug("Tidak ada foto yang menunggu sinkronisasi.")
		return PassResult{}
	}

	mode := "Sekuensial"
	if p.cfg.IsConcurrent {
		mode = "Konkuren"
	}
	slog.Info(fmt.Sprintf("Menemukan %d foto untuk disinkronkan.", len(tasks)), "mode", mode)

	monitor := startResourceMonitor()

	var result PassResult
	if p.cfg.IsConcurrent {
		result = p.runWorkerPool(ctx, tasks)
	} else {
		result = p.runSequential(ctx, tasks)
	}

	monitor.stop()
	p.publishStats(ctx)
	return result
}

// Kick starts a pass in the background.
func (p *Processor) Kick() {
	if !p.startPass() {
		return
	}

	go func() {
		defer p.passes.Done()
		p.ProcessQueue(p.baseCtx)
	}()
}

// startPass registers a pass so Wait and Close account for it. It reports
// false once the processor is closed.
func (p *Processor) startPass() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.passes.Add(1)
	return true
}

// runPass runs a tracked pass on the caller's goroutine.
func (p *Processor) runPass(ctx context.Context) (PassResult, bool) {
	if !p.startPass() {
		return PassResult{}, false
	}
	defer p.passes.Done()
	return p.ProcessQueue(ctx), true
}

// Wait blocks until every tracked pass has returned.
func (p *Processor) Wait() {
	p.passes.Wait()
}

// Close cancels pending retries and in-flight passes and waits for them.
func (p *Processor) Close() {
	p.mu.Lock()
	p.closed = true
	for t := range p.timers {
		t.Stop()
	}
	p.timers = make(map[timer]struct{})
	p.mu.Unlock()

	p.cancel()
	p.passes.Wait()
}

func (p *Processor) scheduleRetry(delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	var t timer
	t = p.afterFunc(delay, func() {
		p.mu.Lock()
		delete(p.timers, t)
		p.mu.Unlock()

		p.runPass(p.baseCtx)
	})
	p.timers[t] = struct{}{}
}

func (p *Processor) publishStats(ctx context.Context) {
	if p.stats == nil {
		return
	}
	stats, err := p.store.Stats(ctx)
	if err != nil {
		slog.Warn("Gagal menghitung statistik antrean", "error", err)
		return
	}
	if err := p.stats.Publish(ctx, stats); err != nil {
		slog.Warn("Gagal mempublikasikan statistik antrean", "error", err)
	}
}
