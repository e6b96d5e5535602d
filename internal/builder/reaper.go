package builder

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"web2droid/internal/models"
)

// runReaper sweeps expired terminal jobs: their store records, scratch
// project directories, and locally stored artifacts. Without it the store
// and scratch tree grow forever.
func (b *Builder) runReaper(ctx context.Context) {
	interval := b.cfg.ReapInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.reapOnce(time.Now())
		}
	}
}

func (b *Builder) reapOnce(now time.Time) {
	expired := b.store.Expired(now, b.cfg.ArtifactTTL)
	if len(expired) == 0 {
		return
	}

	// Artifacts are keyed by package name and shared across rebuilds. A
	// key is still live while any unexpired completed job points at it;
	// removing it then would break that job's downloadUrl.
	liveKeys := make(map[string]bool)
	for _, job := range b.store.All() {
		if job.Status == models.StatusCompleted && job.ExpiresAt != nil && job.ExpiresAt.After(now) {
			liveKeys[artifactKey(job.PackageName)] = true
		}
	}

	for _, job := range expired {
		scratch := filepath.Join(b.cfg.WorkDir, job.ID)
		if err := os.RemoveAll(scratch); err != nil {
			log.Printf("reaper: remove %s: %v", scratch, err)
		}
		if b.local != nil && job.DownloadURL != "" {
			if key := artifactKey(job.PackageName); !liveKeys[key] {
				if err := b.local.Remove(key); err != nil {
					log.Printf("reaper: remove artifact for %s: %v", job.PackageName, err)
				}
			}
		}
		b.store.Delete(job.ID)
		log.Printf("reaper: evicted job %s", job.ID)
	}
}
