package repositories

import (
	"database/sql"
	"sync"
	"time"

	"github.com/alimgiray/ghmirror/internal/models"
)

// SyncRunRepository handles database operations for sync runs
type SyncRunRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSyncRunRepository creates a new SyncRunRepository
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

func scanSyncRun(row rowScanner) (*models.SyncRun, error) {
	run := &models.SyncRun{}
	err := row.Scan(
		&run.ID,
		&run.Target,
		&run.Status,
		&run.ErrorMessage,
		&run.EventsSeen,
		&run.UsersMerged,
		&run.ScanState,
		&run.Checkpoint,
		&run.StartedAt,
		&run.CompletedAt,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Create creates a new sync run
func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO sync_runs (id, target, status, error_message, events_seen, users_merged, scan_state, checkpoint, started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID,
		run.Target,
		run.Status,
		run.ErrorMessage,
		run.EventsSeen,
		run.UsersMerged,
		run.ScanState,
		run.Checkpoint,
		run.StartedAt,
		run.CompletedAt,
		run.CreatedAt,
		run.UpdatedAt,
	)
	return err
}

// GetByID retrieves a sync run by ID
func (r *SyncRunRepository) GetByID(id string) (*models.SyncRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, target, status, error_message, events_seen, users_merged, scan_state, checkpoint, started_at, completed_at, created_at, updated_at
		FROM sync_runs WHERE id = ?
	`
	return scanSyncRun(r.db.QueryRow(query, id))
}

// ListByTarget retrieves the most recent runs of a target, newest first
func (r *SyncRunRepository) ListByTarget(target string, limit int) ([]*models.SyncRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, target, status, error_message, events_seen, users_merged, scan_state, checkpoint, started_at, completed_at, created_at, updated_at
		FROM sync_runs
		WHERE target = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, target, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Update updates a sync run
func (r *SyncRunRepository) Update(run *models.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE sync_runs
		SET status = ?, error_message = ?, events_seen = ?, users_merged = ?, scan_state = ?,
		    checkpoint = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		run.Status,
		run.ErrorMessage,
		run.EventsSeen,
		run.UsersMerged,
		run.ScanState,
		run.Checkpoint,
		run.StartedAt,
		run.CompletedAt,
		time.Now(),
		run.ID,
	)
	return err
}

// DeleteOlderThan removes finished runs created before cutoff
func (r *SyncRunRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.Exec(`DELETE FROM sync_runs WHERE created_at < ? AND status IN (?, ?, ?)`,
		cutoff, models.SyncRunStatusSuccess, models.SyncRunStatusSkipped, models.SyncRunStatusFailed)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
