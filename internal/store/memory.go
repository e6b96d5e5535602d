package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"web2droid/internal/models"
)

// Store is the process-wide collection of job records. All mutation goes
// through its methods; readers get deep-copied snapshots.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

// New constructs an empty in-memory job store.
func New() *Store {
	return &Store{jobs: make(map[string]*models.Job)}
}

// Create registers a new job in status queued and returns its snapshot.
func (s *Store) Create(url, packageName string, options models.BuildOptions) models.Job {
	job := &models.Job{
		ID:          newJobID(),
		URL:         url,
		PackageName: packageName,
		Options:     options,
		Status:      models.StatusQueued,
		Logs:        []models.LogEntry{},
		CreatedAt:   time.Now(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return job.Clone()
}

// Get returns a snapshot of the job, if known.
func (s *Store) Get(id string) (models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	return job.Clone(), true
}

// SetProcessing moves a queued job into processing.
func (s *Store) SetProcessing(id string) {
	s.mutate(id, func(job *models.Job) {
		job.Status = models.StatusProcessing
	})
}

// SetProgress raises the job's progress. Regressions are ignored so the
// value stays monotonic no matter how callers interleave.
func (s *Store) SetProgress(id string, progress int) {
	s.mutate(id, func(job *models.Job) {
		if progress > 100 {
			progress = 100
		}
		if progress > job.Progress {
			job.Progress = progress
		}
	})
}

// AppendLog attaches one timestamped log entry to the job.
func (s *Store) AppendLog(id, message string) {
	if strings.TrimSpace(message) == "" {
		return
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return
	}
	job.Logs = append(job.Logs, models.LogEntry{Time: now, Message: message})
}

// MarkCompleted transitions the job to its completed terminal state.
func (s *Store) MarkCompleted(id, downloadURL string, expiresAt time.Time) {
	s.mutate(id, func(job *models.Job) {
		job.Status = models.StatusCompleted
		job.Progress = 100
		job.DownloadURL = downloadURL
		job.ExpiresAt = &expiresAt
		job.Error = ""
	})
}

// MarkFailed transitions the job to its failed terminal state. Progress is
// frozen at its last value and any partial logs stay attached.
func (s *Store) MarkFailed(id, message string) {
	if message == "" {
		message = "unknown error"
	}
	s.mutate(id, func(job *models.Job) {
		job.Status = models.StatusFailed
		job.Error = message
		job.DownloadURL = ""
		job.ExpiresAt = nil
	})
}

// Expired returns snapshots of terminal jobs whose retention window has
// passed. Failed jobs have no expiresAt and fall back to createdAt+ttl.
func (s *Store) Expired(now time.Time, ttl time.Duration) []models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Job
	for _, job := range s.jobs {
		if !models.TerminalStatus(job.Status) {
			continue
		}
		deadline := job.CreatedAt.Add(ttl)
		if job.ExpiresAt != nil {
			deadline = *job.ExpiresAt
		}
		if now.After(deadline) {
			out = append(out, job.Clone())
		}
	}
	return out
}

// All returns snapshots of every tracked job.
func (s *Store) All() []models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	return out
}

// Delete evicts a job record. Non-terminal jobs are never evicted.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok && models.TerminalStatus(job.Status) {
		delete(s.jobs, id)
	}
}

// Len reports how many jobs are currently tracked.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// mutate applies fn under the lock unless the job is unknown or already
// terminal. Terminal records are frozen.
func (s *Store) mutate(id string, fn func(*models.Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || models.TerminalStatus(job.Status) {
		return
	}
	fn(job)
}

// newJobID yields IDs of the form job_<unixmillis>_<alnum>.
func newJobID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("job_%d_%s", time.Now().UnixMilli(), suffix)
}
