package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bnema/docstruct/config"
	"github.com/bnema/docstruct/internal/adapter/converter/ffmpeg"
	"github.com/bnema/docstruct/internal/adapter/converter/ghostscript"
	"github.com/bnema/docstruct/internal/adapter/converter/imagemagick"
	"github.com/bnema/docstruct/internal/adapter/converter/office"
	HTTPAdapter "github.com/bnema/docstruct/internal/adapter/http"
	"github.com/bnema/docstruct/internal/adapter/queue/memory"
	redisqueue "github.com/bnema/docstruct/internal/adapter/queue/redis"
	sqlitequeue "github.com/bnema/docstruct/internal/adapter/queue/sqlite"
	"github.com/bnema/docstruct/internal/adapter/storage/localfs"
	miniostore "github.com/bnema/docstruct/internal/adapter/storage/minio"
	"github.com/bnema/docstruct/internal/infrastructure/logger"
	"github.com/bnema/docstruct/internal/infrastructure/toolchain"
	"github.com/bnema/docstruct/internal/port"
	"github.com/bnema/docstruct/internal/service"
)

const usage = `usage: docstruct [command]

commands:
  serve               run the worker and the producer API (default)
  worker              run the worker only
  api                 run the producer API only
  hash-token TOKEN    print the bcrypt hash to use as API_TOKEN_HASH`

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve", "worker", "api":
	case "hash-token":
		if len(os.Args) != 3 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		hash, err := service.HashToken(os.Args[2])
		if err != nil {
			logger.Error.Printf("failed to hash token: %v", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(cmd); err != nil {
		logger.Error.Printf("%v", err)
		os.Exit(1)
	}
}

func run(cmd string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn.Printf("%v, using info", err)
	}
	logger.SetLevel(level)

	runWorker := cmd == "serve" || cmd == "worker"
	runAPI := cmd == "serve" || cmd == "api"

	if cmd != "serve" && cfg.QueueBackend == config.QueueMemory {
		return fmt.Errorf("the memory queue only works with serve, the %s command needs redis or sqlite", cmd)
	}

	logger.Info.Printf("starting docstruct %s, queue=%s storage=%s", cmd, cfg.QueueBackend, cfg.StorageBackend)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue, closeQueue, err := openQueue(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeQueue()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	eventBus := service.NewEventBus()
	registry := service.DefaultRegistry()

	var (
		transcoder *ffmpeg.Transcoder
		pool       *service.WorkerPool
	)
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()

	if runWorker {
		tools, err := toolchain.Resolve(cfg.RequiredTools())
		if err != nil {
			return err
		}

		transcoder = ffmpeg.NewTranscoder(store, queue, logger.New("transcoder"), ffmpeg.Options{
			FFmpeg:       tools["ffmpeg"],
			FFprobe:      tools["ffprobe"],
			InputBucket:  cfg.InputBucket,
			OutputBucket: cfg.OutputBucket,
			WorkDir:      cfg.DataDir,
			Concurrency:  cfg.Workers,
		})

		deps := &service.Deps{
			Config:     cfg,
			Logger:     logger.New("worker"),
			Store:      store,
			Transcoder: transcoder,
			Images:     imagemagick.NewTool(tools["convert"], tools["identify"]),
			Documents:  office.NewConverter(tools["document converter"]),
			PDFs:       ghostscript.NewRasterizer(tools["ghostscript"]),
			Events:     eventBus,
		}

		pool = service.NewWorkerPool(service.NewDispatcher(queue, registry, deps), cfg.Workers)
		if err := pool.Start(workerCtx); err != nil {
			_ = transcoder.Close()
			return err
		}
	}

	var (
		httpServer *http.Server
		apiServer  *HTTPAdapter.Server
	)
	if runAPI {
		auth := service.NewTokenAuth(cfg.APITokenHash)
		if !auth.Enabled() {
			logger.Warn.Printf("API_TOKEN_HASH is not set, the producer API accepts unauthenticated requests")
		}

		apiLog := logger.New("api")
		producer := service.NewProducer(queue, store, registry, cfg.InputBucket, cfg.OutputBucket, apiLog)
		apiServer = HTTPAdapter.NewServer(producer, eventBus, auth, apiLog, HTTPAdapter.Options{})

		httpServer = &http.Server{
			Addr:         cfg.APIAddr,
			Handler:      apiServer,
			ReadTimeout:  5 * time.Minute,
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  120 * time.Second,
		}
	}

	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			if httpServer != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					logger.Error.Printf("http shutdown error: %v", err)
				}
				shutdownCancel()
				apiServer.Close()
			}

			// In-flight messages are not drained.
			workerCancel()
			if pool != nil {
				pool.Wait()
			}
			if transcoder != nil {
				if err := transcoder.Close(); err != nil {
					logger.Warn.Printf("transcoder shutdown: %v", err)
				}
			}
			logger.Info.Printf("shutdown complete")
		})
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if httpServer == nil {
		sig := <-sigChan
		logger.Info.Printf("received %s, shutting down", sig)
		shutdown()
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sig := <-sigChan
		logger.Info.Printf("received %s, shutting down", sig)
		shutdown()
	}()

	logger.Info.Printf("producer API listening on %s", cfg.APIAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		shutdown()
		return fmt.Errorf("server failed: %w", err)
	}
	<-done
	return nil
}

func openQueue(ctx context.Context, cfg *config.Config) (port.Queue, func(), error) {
	var (
		queue port.Queue
		err   error
	)
	switch cfg.QueueBackend {
	case config.QueueRedis:
		queue, err = redisqueue.NewQueue(ctx, cfg.RedisURL, cfg.RedisQueueKey)
	case config.QueueSQLite:
		queue, err = sqlitequeue.NewQueue(cfg.SQLitePath)
	default:
		queue = memory.NewQueue()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s queue: %w", cfg.QueueBackend, err)
	}

	closeQueue := func() {
		if c, ok := queue.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warn.Printf("failed to close queue: %v", err)
			}
		}
	}
	return queue, closeQueue, nil
}

func openStore(ctx context.Context, cfg *config.Config) (port.ObjectStore, error) {
	if cfg.StorageBackend == config.StorageLocal {
		store, err := localfs.NewStore(cfg.LocalStorageDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open local storage: %w", err)
		}
		return store, nil
	}

	store, err := miniostore.NewStore(miniostore.Options{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBuckets(ctx, cfg.InputBucket, cfg.OutputBucket); err != nil {
		return nil, fmt.Errorf("failed to prepare buckets: %w", err)
	}
	return store, nil
}
