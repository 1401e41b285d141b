package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncRunStatus represents the outcome of one sync cycle
type SyncRunStatus string

const (
	SyncRunStatusPending    SyncRunStatus = "pending"
	SyncRunStatusInProgress SyncRunStatus = "in-progress"
	SyncRunStatusSuccess    SyncRunStatus = "success"
	SyncRunStatusSkipped    SyncRunStatus = "skipped"
	SyncRunStatusFailed     SyncRunStatus = "error"
)

// SyncRun records one sync cycle over a target
type SyncRun struct {
	ID           string        `json:"id"`
	Target       string        `json:"target"`
	Status       SyncRunStatus `json:"status"`
	ErrorMessage *string       `json:"error_message"`
	EventsSeen   int           `json:"events_seen"`
	UsersMerged  int           `json:"users_merged"`
	ScanState    string        `json:"scan_state"`
	Checkpoint   string        `json:"checkpoint"`
	StartedAt    *time.Time    `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewSyncRun creates a pending run with a generated UUID
func NewSyncRun(target string) *SyncRun {
	now := time.Now()
	return &SyncRun{
		ID:        uuid.New().String(),
		Target:    target,
		Status:    SyncRunStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkStarted marks the run as started
func (r *SyncRun) MarkStarted() {
	now := time.Now()
	r.Status = SyncRunStatusInProgress
	r.StartedAt = &now
	r.UpdatedAt = now
}

// MarkCompleted records a finished run with the given terminal status
func (r *SyncRun) MarkCompleted(status SyncRunStatus) {
	now := time.Now()
	r.Status = status
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// MarkFailed marks the run as failed with err's message
func (r *SyncRun) MarkFailed(err error) {
	r.MarkCompleted(SyncRunStatusFailed)
	if err != nil {
		msg := err.Error()
		r.ErrorMessage = &msg
	}
}

// IsFinished reports whether the run reached a terminal status
func (r *SyncRun) IsFinished() bool {
	return r.Status == SyncRunStatusSuccess || r.Status == SyncRunStatusSkipped || r.Status == SyncRunStatusFailed
}
