package builder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"web2droid/internal/artifact"
	"web2droid/internal/config"
	"web2droid/internal/models"
	"web2droid/internal/project"
	"web2droid/internal/runner"
	"web2droid/internal/site"
	"web2droid/internal/store"
	"web2droid/internal/telemetry"
)

// Builder owns job creation and drives each job through the pipeline:
// fetch, templating, gradle invocation, artifact resolution, storage. It
// is the only writer of job state.
type Builder struct {
	cfg     config.Config
	store   *store.Store
	fetcher *site.Fetcher
	storage artifact.Storage
	local   *artifact.LocalStorage

	queue chan string
	wg    sync.WaitGroup
}

// New wires the orchestrator. local may be nil when artifacts go to S3.
func New(cfg config.Config, st *store.Store, fetcher *site.Fetcher, storage artifact.Storage, local *artifact.LocalStorage) *Builder {
	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = 64
	}
	return &Builder{
		cfg:     cfg,
		store:   st,
		fetcher: fetcher,
		storage: storage,
		local:   local,
		queue:   make(chan string, capacity),
	}
}

// Start launches the build workers and the reaper. Workers drain the
// queue until ctx is cancelled.
func (b *Builder) Start(ctx context.Context) {
	workers := b.cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case jobID := <-b.queue:
					telemetry.QueueDepthGauge.Set(float64(len(b.queue)))
					b.process(ctx, jobID)
				}
			}
		}()
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.runReaper(ctx)
	}()
}

// Wait blocks until all workers have exited after cancellation.
func (b *Builder) Wait() {
	b.wg.Wait()
}

// Submit registers a new job and hands it to the worker pool without
// blocking the caller. The returned snapshot is valid immediately; the
// pipeline proceeds in the background.
func (b *Builder) Submit(rawURL, packageName string, options models.BuildOptions) models.Job {
	job := b.store.Create(rawURL, packageName, options)
	telemetry.JobsCreated.Inc()

	select {
	case b.queue <- job.ID:
		telemetry.QueueDepthGauge.Set(float64(len(b.queue)))
	default:
		// Queue saturated. Fail fast instead of blocking the HTTP path.
		b.store.MarkFailed(job.ID, "build queue is full, try again later")
		telemetry.JobsFailed.Inc()
	}

	snap, _ := b.store.Get(job.ID)
	return snap
}

// process runs the whole pipeline for one job. Every failure, including a
// panic in any stage, lands the job in a terminal failed state; a record
// is never left stuck in processing.
func (b *Builder) process(ctx context.Context, jobID string) {
	telemetry.JobsInFlight.Inc()
	defer telemetry.JobsInFlight.Dec()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("job %s: pipeline panic: %v", jobID, r)
			b.fail(jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	job, ok := b.store.Get(jobID)
	if !ok || job.Status != models.StatusQueued {
		return
	}
	b.store.SetProcessing(jobID)
	log.Printf("job %s: building %s as %s", jobID, job.URL, job.PackageName)

	// Stage 1: the URL must be absolute http(s); nothing is spawned for
	// garbage input.
	target, err := url.Parse(job.URL)
	if err != nil || !target.IsAbs() || target.Host == "" || (target.Scheme != "http" && target.Scheme != "https") {
		b.fail(jobID, fmt.Sprintf("invalid URL: %s", job.URL))
		return
	}
	b.store.SetProgress(jobID, 10)

	// Stage 2: fetch the page.
	b.store.AppendLog(jobID, "Fetching "+job.URL)
	raw, err := b.fetcher.Fetch(ctx, job.URL)
	if err != nil {
		b.fail(jobID, fmt.Sprintf("failed to fetch website: %v", err))
		return
	}
	b.store.SetProgress(jobID, 20)

	// Stage 3: page metadata, with defaults for whatever is missing.
	meta := site.Extract(raw, target)
	b.store.AppendLog(jobID, fmt.Sprintf("Extracted metadata: title=%q themeColor=%s", meta.Title, meta.ThemeColor))
	b.store.SetProgress(jobID, 30)

	// Stage 4: isolated scratch project, never shared between jobs.
	projectDir := filepath.Join(b.cfg.WorkDir, jobID)
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		b.fail(jobID, fmt.Sprintf("failed to create project directory: %v", err))
		return
	}
	b.store.SetProgress(jobID, 40)

	spec := project.Spec{URL: job.URL, PackageName: job.PackageName, Metadata: meta, Options: job.Options}
	if err := project.Materialize(projectDir, spec); err != nil {
		b.fail(jobID, fmt.Sprintf("failed to generate project: %v", err))
		return
	}
	b.store.SetProgress(jobID, 50)

	// Stage 5: launcher icons from the site icon, theme color otherwise.
	if err := project.GenerateIcons(projectDir, b.loadIcon(ctx, jobID, meta)); err != nil {
		b.fail(jobID, fmt.Sprintf("failed to generate icons: %v", err))
		return
	}
	b.store.SetProgress(jobID, 60)

	// Stage 6: the gradle build.
	b.store.AppendLog(jobID, "Running "+b.cfg.BuildCommand)
	started := time.Now()
	res, err := runner.Run(ctx, b.cfg.BuildCommand, projectDir, b.cfg.BuildTimeout, b.cfg.BuildOutputLimit)
	telemetry.BuildDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		b.fail(jobID, fmt.Sprintf("build process error: %v", err))
		return
	}
	b.appendBuildOutput(jobID, res)
	switch res.State {
	case runner.TimedOut:
		telemetry.BuildTimeouts.Inc()
		b.fail(jobID, fmt.Sprintf("build timed out after %s", b.cfg.BuildTimeout))
		return
	case runner.OutputTooLarge:
		b.fail(jobID, "build output too large")
		return
	case runner.Failed:
		b.fail(jobID, fmt.Sprintf("build failed with exit code %d", res.ExitCode))
		return
	}
	b.store.SetProgress(jobID, 70)

	// Stage 7: locate the APK.
	apkPath, err := artifact.Resolve(projectDir)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			b.fail(jobID, "APK file not found after build")
		} else {
			b.fail(jobID, fmt.Sprintf("failed to resolve artifact: %v", err))
		}
		return
	}
	b.store.SetProgress(jobID, 80)

	// Stage 8: move into durable storage. Same package name overwrites
	// the previous artifact.
	downloadURL, err := b.storage.Store(ctx, artifactKey(job.PackageName), apkPath)
	if err != nil {
		b.fail(jobID, fmt.Sprintf("failed to store artifact: %v", err))
		return
	}
	if b.cfg.BaseURL != "" && strings.HasPrefix(downloadURL, "/") {
		downloadURL = strings.TrimRight(b.cfg.BaseURL, "/") + downloadURL
	}
	b.store.SetProgress(jobID, 90)

	b.store.AppendLog(jobID, "APK ready at "+downloadURL)
	b.store.MarkCompleted(jobID, downloadURL, time.Now().Add(b.cfg.ArtifactTTL))
	telemetry.JobsCompleted.Inc()
	log.Printf("job %s: completed, artifact at %s", jobID, downloadURL)
}

// loadIcon fetches and decodes the page icon, degrading to a theme-color
// placeholder on any problem. Icon trouble never fails the build.
func (b *Builder) loadIcon(ctx context.Context, jobID string, meta site.Metadata) image.Image {
	if meta.IconURL != "" {
		raw, err := b.fetcher.Fetch(ctx, meta.IconURL)
		if err == nil {
			if img, err := project.DecodeIcon(raw); err == nil {
				return img
			}
		}
		b.store.AppendLog(jobID, "Site icon unusable, generating placeholder")
	}
	return project.PlaceholderIcon(meta.ThemeColor)
}

func (b *Builder) appendBuildOutput(jobID string, res runner.Result) {
	if res.Stdout != "" {
		b.store.AppendLog(jobID, "Build stdout:\n"+res.Stdout)
	}
	if res.Stderr != "" {
		b.store.AppendLog(jobID, "Build stderr:\n"+res.Stderr)
	}
}

func (b *Builder) fail(jobID, message string) {
	b.store.AppendLog(jobID, message)
	b.store.MarkFailed(jobID, message)
	telemetry.JobsFailed.Inc()
	log.Printf("job %s: failed: %s", jobID, message)
}

// artifactKey keeps the package name recognizable in the download URL
// while stripping anything path-hostile.
func artifactKey(packageName string) string {
	var b strings.Builder
	for _, r := range packageName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	key := strings.Trim(b.String(), ".")
	if key == "" {
		key = "app"
	}
	return key + ".apk"
}
