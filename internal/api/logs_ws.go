package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"web2droid/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// logsFrame is one websocket push: current status plus any log entries
// appended since the previous frame.
type logsFrame struct {
	Status   string            `json:"status"`
	Progress int               `json:"progress"`
	Logs     []models.LogEntry `json:"logs,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// handleJobLogsWS streams a job's progress and log tail until the job
// reaches a terminal state or the client goes away.
func (s *Server) handleJobLogsWS(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if _, ok := s.store.Get(jobID); !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Discard client frames so close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	sent := 0
	for {
		job, ok := s.store.Get(jobID)
		if !ok {
			return
		}
		frame := logsFrame{Status: job.Status, Progress: job.Progress, Error: job.Error}
		if len(job.Logs) > sent {
			frame.Logs = job.Logs[sent:]
			sent = len(job.Logs)
		}
		if err := conn.WriteJSON(frame); err != nil {
			return
		}
		if models.TerminalStatus(job.Status) {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, job.Status))
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
