package models

import (
	"time"
)

// JobStatus enumerates lifecycle states of a build job.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// TerminalStatus reports whether a status admits no further transitions.
func TerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// BuildOptions is the recognized subset of the request's options bag.
// Unknown keys are dropped during JSON decoding.
type BuildOptions struct {
	PushNotifications bool `json:"pushNotifications"`
	OfflineMode       bool `json:"offlineMode"`
}

// LogEntry is one timestamped line of captured build output.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Job represents one URL-to-APK build request tracked in memory.
type Job struct {
	ID          string       `json:"jobId"`
	URL         string       `json:"url"`
	PackageName string       `json:"packageName"`
	Options     BuildOptions `json:"options"`
	Status      string       `json:"status"`
	Progress    int          `json:"progress"`
	Logs        []LogEntry   `json:"logs"`
	DownloadURL string       `json:"downloadUrl,omitempty"`
	ExpiresAt   *time.Time   `json:"expiresAt,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Clone returns a deep copy so readers never share the store's log slice.
func (j Job) Clone() Job {
	out := j
	out.Logs = make([]LogEntry, len(j.Logs))
	copy(out.Logs, j.Logs)
	if j.ExpiresAt != nil {
		t := *j.ExpiresAt
		out.ExpiresAt = &t
	}
	return out
}
