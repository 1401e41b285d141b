package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimgiray/ghmirror/internal/models"
	"github.com/alimgiray/ghmirror/pkg/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTargetRepository_CreateIsIdempotent(t *testing.T) {
	repo := NewTargetRepository(setupTestDB(t))

	target := models.NewTarget("octo", "hello", true)
	created, err := repo.Create(target)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(models.NewTarget("octo", "hello", false))
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := repo.GetByName("octo", "hello")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Enterprise)
	assert.Equal(t, models.NoCheckpoint, stored.Checkpoint)
	assert.Empty(t, stored.Contributors)
	assert.NotNil(t, stored.Contributors)
	assert.Nil(t, stored.LastSyncedAt)
}

func TestTargetRepository_GetByNameMissing(t *testing.T) {
	repo := NewTargetRepository(setupTestDB(t))

	stored, err := repo.GetByName("octo", "missing")
	assert.NoError(t, err)
	assert.Nil(t, stored)
}

func TestTargetRepository_CheckpointAndMetadata(t *testing.T) {
	repo := NewTargetRepository(setupTestDB(t))
	_, err := repo.Create(models.NewTarget("octo", "hello", false))
	require.NoError(t, err)

	syncedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateCheckpoint("octo", "hello", "12345", syncedAt))

	meta := models.NewTarget("octo", "hello", false)
	meta.RepoID = 42
	meta.Language = "Go"
	meta.Stars = 9
	meta.Topics = []string{"mirror", "sync"}
	require.NoError(t, repo.UpdateMetadata(meta))

	stored, err := repo.GetByName("octo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "12345", stored.Checkpoint)
	require.NotNil(t, stored.LastSyncedAt)
	assert.True(t, syncedAt.Equal(*stored.LastSyncedAt))
	assert.Equal(t, int64(42), stored.RepoID)
	assert.Equal(t, "Go", stored.Language)
	assert.Equal(t, 9, stored.Stars)
	assert.Equal(t, []string{"mirror", "sync"}, stored.Topics)
}

func TestTargetRepository_AddContributor(t *testing.T) {
	repo := NewTargetRepository(setupTestDB(t))
	_, err := repo.Create(models.NewTarget("octo", "hello", false))
	require.NoError(t, err)

	require.NoError(t, repo.AddContributor("octo", "hello", "alice"))
	require.NoError(t, repo.AddContributor("octo", "hello", "bob"))
	require.NoError(t, repo.AddContributor("octo", "hello", "alice"))

	stored, err := repo.GetByName("octo", "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, stored.Contributors)

	err = repo.AddContributor("octo", "missing", "alice")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestTargetRepository_List(t *testing.T) {
	repo := NewTargetRepository(setupTestDB(t))
	for _, name := range []string{"zeta", "alpha"} {
		_, err := repo.Create(models.NewTarget("octo", name, false))
		require.NoError(t, err)
	}

	targets, err := repo.List()
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "octo/alpha", targets[0].FullName())
	assert.Equal(t, "octo/zeta", targets[1].FullName())
}

func TestAggregateRepository_PlaceholderLifecycle(t *testing.T) {
	repo := NewAggregateRepository(setupTestDB(t))

	agg, err := repo.Get("alice", "octo/hello")
	require.NoError(t, err)
	assert.Nil(t, agg)

	require.NoError(t, repo.PutPlaceholder("alice", "octo/hello"))
	pending, err := repo.IsPending("alice", "octo/hello")
	require.NoError(t, err)
	assert.True(t, pending)

	agg, err = repo.Get("alice", "octo/hello")
	require.NoError(t, err)
	assert.Nil(t, agg, "a placeholder is not an aggregate")

	doc := models.NewAggregate("alice", models.TargetInfo{FullName: "octo/hello", Name: "hello", Owner: "octo"})
	doc.Checkpoint = "99"
	doc.Issues = append(doc.Issues, models.Issue{Number: 7, State: "closed", Type: models.IssueTypeCreated})
	doc.PullRequests = append(doc.PullRequests, *models.NewPullRequestRecord(3))
	require.NoError(t, repo.Update("alice", "octo/hello", doc))

	pending, err = repo.IsPending("alice", "octo/hello")
	require.NoError(t, err)
	assert.False(t, pending)

	stored, err := repo.Get("alice", "octo/hello")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "99", stored.Checkpoint)
	require.Len(t, stored.Issues, 1)
	assert.Equal(t, "closed", stored.Issues[0].State)
	require.Len(t, stored.PullRequests, 1)
	assert.Nil(t, stored.PullRequests[0].Details)
	assert.NotNil(t, stored.PullRequests[0].Commits)
}

func TestAggregateRepository_ListByLoginSkipsPlaceholders(t *testing.T) {
	repo := NewAggregateRepository(setupTestDB(t))

	require.NoError(t, repo.Update("alice", "octo/b", models.NewAggregate("alice", models.TargetInfo{FullName: "octo/b"})))
	require.NoError(t, repo.Update("alice", "octo/a", models.NewAggregate("alice", models.TargetInfo{FullName: "octo/a"})))
	require.NoError(t, repo.PutPlaceholder("alice", "octo/c"))
	require.NoError(t, repo.Update("bob", "octo/a", models.NewAggregate("bob", models.TargetInfo{FullName: "octo/a"})))

	aggregates, err := repo.ListByLogin("alice")
	require.NoError(t, err)
	require.Len(t, aggregates, 2)
	assert.Equal(t, "octo/a", aggregates[0].Target.FullName)
	assert.Equal(t, "octo/b", aggregates[1].Target.FullName)
}

func TestContributorRepository_Upsert(t *testing.T) {
	repo := NewContributorRepository(setupTestDB(t))

	missing, err := repo.GetByLogin("alice")
	require.NoError(t, err)
	assert.Nil(t, missing)

	now := time.Now()
	require.NoError(t, repo.Upsert(&models.Contributor{Login: "alice", Name: "Alice", Followers: 3, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, repo.Upsert(&models.Contributor{Login: "alice", Name: "Alice A.", Followers: 5, Enterprise: true, CreatedAt: now, UpdatedAt: now}))

	stored, err := repo.GetByLogin("alice")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Alice A.", stored.Name)
	assert.Equal(t, 5, stored.Followers)
	assert.True(t, stored.Enterprise)
}

func TestSyncRunRepository_Lifecycle(t *testing.T) {
	repo := NewSyncRunRepository(setupTestDB(t))

	run := models.NewSyncRun("octo/hello")
	require.NoError(t, repo.Create(run))

	run.MarkStarted()
	run.EventsSeen = 12
	run.UsersMerged = 2
	run.ScanState = "checkpoint_found"
	run.Checkpoint = "500"
	run.MarkCompleted(models.SyncRunStatusSuccess)
	require.NoError(t, repo.Update(run))

	stored, err := repo.GetByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncRunStatusSuccess, stored.Status)
	assert.Equal(t, 12, stored.EventsSeen)
	assert.Equal(t, "500", stored.Checkpoint)
	assert.NotNil(t, stored.StartedAt)
	assert.NotNil(t, stored.CompletedAt)
	assert.Nil(t, stored.ErrorMessage)

	failed := models.NewSyncRun("octo/hello")
	failed.CreatedAt = run.CreatedAt.Add(time.Second)
	failed.MarkFailed(errors.New("boom"))
	require.NoError(t, repo.Create(failed))

	runs, err := repo.ListByTarget("octo/hello", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, failed.ID, runs[0].ID)
	require.NotNil(t, runs[0].ErrorMessage)
	assert.Equal(t, "boom", *runs[0].ErrorMessage)

	other, err := repo.ListByTarget("octo/other", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSyncRunRepository_DeleteOlderThan(t *testing.T) {
	repo := NewSyncRunRepository(setupTestDB(t))

	old := models.NewSyncRun("octo/hello")
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	old.MarkCompleted(models.SyncRunStatusSuccess)
	require.NoError(t, repo.Create(old))

	recent := models.NewSyncRun("octo/hello")
	recent.MarkCompleted(models.SyncRunStatusSkipped)
	require.NoError(t, repo.Create(recent))

	deleted, err := repo.DeleteOlderThan(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	runs, err := repo.ListByTarget("octo/hello", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, recent.ID, runs[0].ID)
}
