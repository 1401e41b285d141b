package repositories

import (
	"database/sql"
	"sync"
	"time"

	"github.com/alimgiray/ghmirror/internal/models"
)

// ContributorRepository handles database operations for contributor profiles
type ContributorRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewContributorRepository creates a new ContributorRepository
func NewContributorRepository(db *sql.DB) *ContributorRepository {
	return &ContributorRepository{db: db}
}

// Upsert creates or refreshes a contributor profile
func (r *ContributorRepository) Upsert(c *models.Contributor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO contributors (login, name, email, avatar_url, html_url, company, location, bio,
			public_repos, followers, following, enterprise, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(login) DO UPDATE SET
			name = excluded.name, email = excluded.email, avatar_url = excluded.avatar_url,
			html_url = excluded.html_url, company = excluded.company, location = excluded.location,
			bio = excluded.bio, public_repos = excluded.public_repos, followers = excluded.followers,
			following = excluded.following, enterprise = excluded.enterprise, updated_at = ?
	`

	_, err := r.db.Exec(query,
		c.Login, c.Name, c.Email, c.AvatarURL, c.HTMLURL, c.Company, c.Location, c.Bio,
		c.PublicRepos, c.Followers, c.Following, c.Enterprise, c.CreatedAt, c.UpdatedAt,
		time.Now(),
	)
	return err
}

// GetByLogin retrieves a contributor profile. It returns nil when the login is unknown.
func (r *ContributorRepository) GetByLogin(login string) (*models.Contributor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT login, name, email, avatar_url, html_url, company, location, bio,
			   public_repos, followers, following, enterprise, created_at, updated_at
		FROM contributors WHERE login = ?
	`

	c := &models.Contributor{}
	err := r.db.QueryRow(query, login).Scan(
		&c.Login, &c.Name, &c.Email, &c.AvatarURL, &c.HTMLURL, &c.Company, &c.Location, &c.Bio,
		&c.PublicRepos, &c.Followers, &c.Following, &c.Enterprise, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}
