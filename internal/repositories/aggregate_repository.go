package repositories

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/alimgiray/ghmirror/internal/models"
)

// placeholderDocument marks an aggregate whose backfill has not finished
const placeholderDocument = "false"

// AggregateRepository stores one aggregate document per (login, target)
type AggregateRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewAggregateRepository creates a new AggregateRepository
func NewAggregateRepository(db *sql.DB) *AggregateRepository {
	return &AggregateRepository{db: db}
}

// Get retrieves the aggregate of login on target. It returns nil when there
// is none or when only the backfill placeholder is stored.
func (r *AggregateRepository) Get(login, target string) (*models.Aggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var document string
	err := r.db.QueryRow(`SELECT document FROM aggregates WHERE login = ? AND target = ?`, login, target).Scan(&document)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if document == placeholderDocument {
		return nil, nil
	}

	agg := &models.Aggregate{}
	if err := json.Unmarshal([]byte(document), agg); err != nil {
		return nil, err
	}
	return agg, nil
}

// Update writes the whole aggregate document
func (r *AggregateRepository) Update(login, target string, agg *models.Aggregate) error {
	document, err := json.Marshal(agg)
	if err != nil {
		return err
	}
	return r.put(login, target, string(document))
}

// PutPlaceholder marks the aggregate as being backfilled
func (r *AggregateRepository) PutPlaceholder(login, target string) error {
	return r.put(login, target, placeholderDocument)
}

func (r *AggregateRepository) put(login, target, document string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	query := `
		INSERT INTO aggregates (login, target, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(login, target) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at
	`
	_, err := r.db.Exec(query, login, target, document, now, now)
	return err
}

// IsPending reports whether a backfill placeholder is stored for login on target
func (r *AggregateRepository) IsPending(login, target string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending bool
	err := r.db.QueryRow(`SELECT document = ? FROM aggregates WHERE login = ? AND target = ?`,
		placeholderDocument, login, target).Scan(&pending)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return pending, err
}

// ListByLogin retrieves every complete aggregate of login ordered by target
func (r *AggregateRepository) ListByLogin(login string) ([]*models.Aggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT document FROM aggregates
		WHERE login = ? AND document != ?
		ORDER BY target
	`
	rows, err := r.db.Query(query, login, placeholderDocument)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aggregates []*models.Aggregate
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, err
		}
		agg := &models.Aggregate{}
		if err := json.Unmarshal([]byte(document), agg); err != nil {
			return nil, err
		}
		aggregates = append(aggregates, agg)
	}
	return aggregates, rows.Err()
}
