package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"roofing-photo-sync/internal/adapter"
	"roofing-photo-sync/internal/api"
	"roofing-photo-sync/internal/auth"
	"roofing-photo-sync/internal/config"
	"roofing-photo-sync/internal/constant"
	"roofing-photo-sync/internal/database"
	"roofing-photo-sync/internal/imaging"
	"roofing-photo-sync/internal/network"
	"roofing-photo-sync/internal/queue"
	"roofing-photo-sync/internal/service"
	"roofing-photo-sync/internal/service/photosync"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cshum/vipsgen/vips"
	"github.com/robfig/cron/v3"
)

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	appCfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Konfigurasi tidak valid", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(appCfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queueDB, err := database.OpenQueueStore(appCfg.QueueDBPath)
	if err != nil {
		slog.Error("Gagal membuka antrean lokal", "path", appCfg.QueueDBPath, "error", err)
		os.Exit(1)
	}
	store := queue.NewStore(queueDB)

	remoteDB, err := database.ConnectRemote(appCfg.DSN)
	if err != nil {
		slog.Error("Gagal terhubung ke database", "error", err)
		os.Exit(1)
	}

	var s3Client *s3.Client
	if appCfg.StorageMode == constant.StorageModeS3 {
		s3Client, err = adapter.NewS3Client(ctx, appCfg)
		if err != nil {
			slog.Error("Gagal membuat S3 client", "error", err)
			os.Exit(1)
		}
	}
	storage := adapter.NewStorageAdapter(appCfg, s3Client)

	session := auth.NewSession(appCfg.JWTSecret, appCfg.SessionToken)

	deps := photosync.Deps{
		Store:    store,
		Objects:  storage,
		Recorder: adapter.NewPhotoRecorder(remoteDB),
		Session:  session,
	}

	if appCfg.RedisAddr != "" {
		redisClient, err := adapter.NewRedisClient(ctx, appCfg)
		if err != nil {
			slog.Warn("Redis tidak tersedia, statistik antrean tidak dipublikasikan", "error", err)
		} else {
			defer redisClient.Close()
			deps.Stats = adapter.NewRedisStatsPublisher(redisClient, appCfg.StatsKey)
		}
	}

	if appCfg.ThumbnailEnabled {
		vips.Startup(nil)
		defer vips.Shutdown()
		deps.Thumbnailer = imaging.NewWebPThumbnailer(appCfg.ThumbnailMaxSize, appCfg.ThumbnailQuality)
	}

	processor := photosync.NewProcessor(photosync.Config{
		MaxRetries:   appCfg.MaxRetries,
		BaseDelay:    appCfg.RetryBaseDelay,
		IsConcurrent: appCfg.IsConcurrent,
		NumWorkers:   appCfg.NumWorkers,
		BatchSize:    appCfg.BatchSize,
		Retention:    appCfg.CompletedRetention,
		UploadRate:   appCfg.UploadRate,
		UploadBurst:  appCfg.UploadBurst,
	}, deps)

	monitor := network.NewMonitor(
		network.NewInterfaceChecker(appCfg.NetworkProbeAddr, appCfg.NetworkProbeTimeout),
		appCfg.NetworkPollInterval,
	)
	monitor.Subscribe(photosync.NewNetworkListener(processor))

	immediate := photosync.NewImmediateTrigger(processor, monitor.Online)
	background := photosync.NewBackgroundSync(processor, monitor.Online, appCfg.BackgroundSyncTimeout, immediate)
	trigger := photosync.SelectTrigger(appCfg.BackgroundSync, background, immediate)
	if appCfg.BackgroundSync {
		go background.Run(ctx)
	}

	photoService := photosync.NewService(store, processor, trigger)
	server := api.NewServer(appCfg.HTTPAddr, photoService, session, monitor.Online)

	slog.Info("Aplikasi dimulai dengan konfigurasi dari environment variables",
		slog.Group("schedules",
			slog.String("drain", appCfg.DrainSchedule),
			slog.String("purge_completed", appCfg.PurgeSchedule),
			slog.String("janitor_stuck_photos", appCfg.JanitorSchedule),
		),
		slog.String("storage_mode", appCfg.StorageMode),
		slog.Bool("background_sync", appCfg.BackgroundSync),
		slog.Bool("thumbnail", appCfg.ThumbnailEnabled),
		slog.String("log_level", appCfg.LogLevel),
	)

	monitor.Start(ctx)

	c := cron.New()

	if appCfg.DrainSchedule != "" {
		slog.Info("Menjadwalkan sinkronisasi antrean foto", "schedule", appCfg.DrainSchedule)
		_, err := c.AddFunc(appCfg.DrainSchedule, func() {
			if !monitor.Online() {
				slog.Debug("Cron sinkronisasi dilewati, perangkat offline.")
				return
			}
			slog.Info("Cron job sinkronisasi antrean terpicu.")
			processor.Kick()
		})
		if err != nil {
			slog.Error("Tidak dapat menambahkan cron job sinkronisasi", "error", err)
			os.Exit(1)
		}
	}

	if appCfg.PurgeSchedule != "" {
		slog.Info("Menjadwalkan pembersihan foto tersinkron", "schedule", appCfg.PurgeSchedule)
		_, err := c.AddFunc(appCfg.PurgeSchedule, func() {
			slog.Info("Cron job pembersihan terpicu.")
			service.PurgeCompletedPhotos(ctx, store, appCfg.PurgeBatchSize)
		})
		if err != nil {
			slog.Error("Tidak dapat menambahkan cron job pembersihan", "error", err)
			os.Exit(1)
		}
	}

	if appCfg.JanitorSchedule != "" {
		slog.Info("Menjadwalkan Janitor runner", "schedule", appCfg.JanitorSchedule)
		_, err := c.AddFunc(appCfg.JanitorSchedule, func() {
			slog.Info("Cron job janitor terpicu.")
			if released := service.RunJanitor(ctx, store, appCfg.JanitorStuckThreshold); released > 0 && monitor.Online() {
				processor.Kick()
			}
		})
		if err != nil {
			slog.Error("Tidak dapat menambahkan cron job janitor", "error", err)
			os.Exit(1)
		}
	}

	c.Start()

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server HTTP berhenti dengan error", "error", err)
			stop()
		}
	}()

	slog.Info("Layanan sinkronisasi foto berjalan. Tekan Ctrl+C untuk berhenti.")
	<-ctx.Done()

	slog.Info("Sinyal berhenti diterima, menghentikan layanan...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Gagal menghentikan server HTTP dengan rapi", "error", err)
	}

	<-c.Stop().Done()
	processor.Close()

	if sqlDB, err := queueDB.DB(); err == nil {
		sqlDB.Close()
	}
	if sqlDB, err := remoteDB.DB(); err == nil {
		sqlDB.Close()
	}
	slog.Info("Layanan berhenti.")
}
