package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"web2droid/internal/api"
	"web2droid/internal/artifact"
	"web2droid/internal/builder"
	"web2droid/internal/config"
	"web2droid/internal/ratelimit"
	"web2droid/internal/site"
	"web2droid/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		log.Fatalf("create work dir: %v", err)
	}

	st := store.New()
	fetcher := site.NewFetcher(cfg.FetchTimeout, cfg.UserAgent, cfg.FetchMaxBytes)

	local, err := artifact.NewLocalStorage(cfg.OutputDir)
	if err != nil {
		log.Fatalf("init local storage: %v", err)
	}
	var storage artifact.Storage = local
	if cfg.APKS3Bucket != "" {
		s3Storage, err := artifact.NewS3Storage(ctx, artifact.S3Options{
			Bucket:    cfg.APKS3Bucket,
			Region:    cfg.APKS3Region,
			Endpoint:  cfg.APKS3Endpoint,
			PathStyle: cfg.APKS3PathStyle,
		})
		if err != nil {
			log.Fatalf("init s3 storage: %v", err)
		}
		storage = s3Storage
		local = nil
	}

	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		limiter = ratelimit.New(client, cfg.RateLimitCapacity, cfg.RateLimitRefill)
	}

	b := builder.New(cfg, st, fetcher, storage, local)
	b.Start(ctx)

	server := api.New(cfg, st, b, limiter, local)
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	log.Printf("web2droid api listening on :%s (workers=%d, timeout=%s)", cfg.HTTPPort, cfg.Workers, cfg.BuildTimeout)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
	b.Wait()
}
