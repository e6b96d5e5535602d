package store

import (
	"regexp"
	"testing"
	"time"

	"web2droid/internal/models"
)

func TestCreateAssignsIDAndQueuedStatus(t *testing.T) {
	s := New()
	job := s.Create("https://example.com", "com.test.app", models.BuildOptions{})

	if ok, _ := regexp.MatchString(`^job_\d+_[a-z0-9]+$`, job.ID); !ok {
		t.Fatalf("unexpected job id format: %q", job.ID)
	}
	if job.Status != models.StatusQueued {
		t.Fatalf("expected queued, got %s", job.Status)
	}
	if job.Progress != 0 {
		t.Fatalf("expected zero progress, got %d", job.Progress)
	}

	got, ok := s.Get(job.ID)
	if !ok {
		t.Fatalf("job not found after create")
	}
	if got.URL != "https://example.com" || got.PackageName != "com.test.app" {
		t.Fatalf("inputs not captured: %+v", got)
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	s := New()
	job := s.Create("https://example.com", "com.test.app", models.BuildOptions{})
	s.SetProcessing(job.ID)

	s.SetProgress(job.ID, 40)
	s.SetProgress(job.ID, 20)
	got, _ := s.Get(job.ID)
	if got.Progress != 40 {
		t.Fatalf("progress regressed: %d", got.Progress)
	}

	s.SetProgress(job.ID, 250)
	got, _ = s.Get(job.ID)
	if got.Progress != 100 {
		t.Fatalf("progress not clamped: %d", got.Progress)
	}
}

func TestTerminalStatesAreFrozen(t *testing.T) {
	s := New()
	job := s.Create("https://example.com", "com.test.app", models.BuildOptions{})
	s.SetProcessing(job.ID)
	s.SetProgress(job.ID, 70)
	s.AppendLog(job.ID, "build stderr: something broke")
	s.MarkFailed(job.ID, "build failed")

	// Late mutations after resolution must be no-ops.
	s.SetProgress(job.ID, 90)
	s.MarkCompleted(job.ID, "/download/com.test.app.apk", time.Now().Add(24*time.Hour))

	got, _ := s.Get(job.ID)
	if got.Status != models.StatusFailed {
		t.Fatalf("terminal status changed: %s", got.Status)
	}
	if got.Progress != 70 {
		t.Fatalf("progress changed after terminal state: %d", got.Progress)
	}
	if got.Error == "" {
		t.Fatalf("failed job must carry an error")
	}
	if got.DownloadURL != "" || got.ExpiresAt != nil {
		t.Fatalf("failed job must not carry completion fields")
	}
	if len(got.Logs) != 1 {
		t.Fatalf("logs lost on failure: %d", len(got.Logs))
	}
}

func TestCompletedCarriesDownloadFields(t *testing.T) {
	s := New()
	job := s.Create("https://example.com", "com.test.app", models.BuildOptions{})
	s.SetProcessing(job.ID)
	expires := time.Now().Add(24 * time.Hour)
	s.MarkCompleted(job.ID, "/download/com.test.app.apk", expires)

	got, _ := s.Get(job.ID)
	if got.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.Progress != 100 {
		t.Fatalf("completed job must be at 100, got %d", got.Progress)
	}
	if got.DownloadURL == "" || got.ExpiresAt == nil {
		t.Fatalf("completion fields missing: %+v", got)
	}
	if got.Error != "" {
		t.Fatalf("completed job must not carry an error")
	}
}

func TestSnapshotsDoNotAliasStoreState(t *testing.T) {
	s := New()
	job := s.Create("https://example.com", "com.test.app", models.BuildOptions{})
	s.AppendLog(job.ID, "first")

	snap, _ := s.Get(job.ID)
	s.AppendLog(job.ID, "second")

	if len(snap.Logs) != 1 {
		t.Fatalf("snapshot mutated by later append: %d", len(snap.Logs))
	}
}

func TestExpiredAndDelete(t *testing.T) {
	s := New()
	ttl := 24 * time.Hour

	active := s.Create("https://example.com", "com.a", models.BuildOptions{})
	done := s.Create("https://example.com", "com.b", models.BuildOptions{})
	s.SetProcessing(done.ID)
	s.MarkCompleted(done.ID, "/download/com.b.apk", time.Now().Add(-time.Minute))

	expired := s.Expired(time.Now(), ttl)
	if len(expired) != 1 || expired[0].ID != done.ID {
		t.Fatalf("unexpected expired set: %+v", expired)
	}

	// Active jobs are never evicted, terminal ones are.
	s.Delete(active.ID)
	s.Delete(done.ID)
	if _, ok := s.Get(active.ID); !ok {
		t.Fatalf("non-terminal job evicted")
	}
	if _, ok := s.Get(done.ID); ok {
		t.Fatalf("terminal job not evicted")
	}
}
