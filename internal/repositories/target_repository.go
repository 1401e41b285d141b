package repositories

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/alimgiray/ghmirror/internal/models"
)

const targetColumns = `owner, name, enterprise, checkpoint, last_synced_at, contributors,
		repo_id, description, html_url, language, visibility, default_branch, owner_avatar_url,
		stars, watchers, forks, open_issues, topics, repo_created_at, repo_updated_at,
		created_at, updated_at`

// TargetRepository handles database operations for tracked targets
type TargetRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewTargetRepository creates a new TargetRepository
func NewTargetRepository(db *sql.DB) *TargetRepository {
	return &TargetRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTarget(row rowScanner) (*models.Target, error) {
	target := &models.Target{}
	var contributors, topics string
	err := row.Scan(
		&target.Owner, &target.Name, &target.Enterprise, &target.Checkpoint, &target.LastSyncedAt, &contributors,
		&target.RepoID, &target.Description, &target.HTMLURL, &target.Language, &target.Visibility,
		&target.DefaultBranch, &target.OwnerAvatarURL, &target.Stars, &target.Watchers, &target.Forks,
		&target.OpenIssues, &topics, &target.RepoCreatedAt, &target.RepoUpdatedAt,
		&target.CreatedAt, &target.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(contributors), &target.Contributors); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(topics), &target.Topics); err != nil {
		return nil, err
	}
	return target, nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	return string(raw), err
}

// Create inserts a target. It reports false when the target is already tracked.
func (r *TargetRepository) Create(target *models.Target) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contributors, err := encodeList(target.Contributors)
	if err != nil {
		return false, err
	}
	topics, err := encodeList(target.Topics)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO targets (` + targetColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, name) DO NOTHING
	`

	result, err := r.db.Exec(query,
		target.Owner, target.Name, target.Enterprise, target.Checkpoint, target.LastSyncedAt, contributors,
		target.RepoID, target.Description, target.HTMLURL, target.Language, target.Visibility,
		target.DefaultBranch, target.OwnerAvatarURL, target.Stars, target.Watchers, target.Forks,
		target.OpenIssues, topics, target.RepoCreatedAt, target.RepoUpdatedAt,
		target.CreatedAt, target.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetByName retrieves a target by owner and name. It returns nil when the target is not tracked.
func (r *TargetRepository) GetByName(owner, name string) (*models.Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT ` + targetColumns + ` FROM targets WHERE owner = ? AND name = ?`

	target, err := scanTarget(r.db.QueryRow(query, owner, name))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return target, nil
}

// List retrieves every tracked target ordered by full name
func (r *TargetRepository) List() ([]*models.Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT ` + targetColumns + ` FROM targets ORDER BY owner, name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []*models.Target
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, rows.Err()
}

// UpdateCheckpoint stores the newest processed feed item and the sync time
func (r *TargetRepository) UpdateCheckpoint(owner, name, checkpoint string, syncedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE targets
		SET checkpoint = ?, last_synced_at = ?, updated_at = ?
		WHERE owner = ? AND name = ?
	`
	_, err := r.db.Exec(query, checkpoint, syncedAt, time.Now(), owner, name)
	return err
}

// UpdateMetadata stores the repository metadata captured during a backfill
func (r *TargetRepository) UpdateMetadata(target *models.Target) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	topics, err := encodeList(target.Topics)
	if err != nil {
		return err
	}

	query := `
		UPDATE targets
		SET repo_id = ?, description = ?, html_url = ?, language = ?, visibility = ?,
		    default_branch = ?, owner_avatar_url = ?, stars = ?, watchers = ?, forks = ?,
		    open_issues = ?, topics = ?, repo_created_at = ?, repo_updated_at = ?, updated_at = ?
		WHERE owner = ? AND name = ?
	`
	_, err = r.db.Exec(query,
		target.RepoID, target.Description, target.HTMLURL, target.Language, target.Visibility,
		target.DefaultBranch, target.OwnerAvatarURL, target.Stars, target.Watchers, target.Forks,
		target.OpenIssues, topics, target.RepoCreatedAt, target.RepoUpdatedAt, time.Now(),
		target.Owner, target.Name,
	)
	return err
}

// AddContributor adds login to the target's known-contributor set
func (r *TargetRepository) AddContributor(owner, name, login string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRow(`SELECT contributors FROM targets WHERE owner = ? AND name = ?`, owner, name).Scan(&raw)
	if err != nil {
		return err
	}

	target := &models.Target{}
	if err := json.Unmarshal([]byte(raw), &target.Contributors); err != nil {
		return err
	}
	if !target.AddContributor(login) {
		return nil
	}

	contributors, err := encodeList(target.Contributors)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`UPDATE targets SET contributors = ?, updated_at = ? WHERE owner = ? AND name = ?`,
		contributors, time.Now(), owner, name)
	if err != nil {
		return err
	}
	return tx.Commit()
}
