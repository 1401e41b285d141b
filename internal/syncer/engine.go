package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alimgiray/ghmirror/internal/gateway"
	"github.com/alimgiray/ghmirror/internal/models"
	"github.com/alimgiray/ghmirror/pkg/logger"
)

var (
	// ErrCheckpointStale means the newest recognized feed item is the stored checkpoint.
	ErrCheckpointStale = errors.New("target is up to date")
	// ErrCycleInProgress means another cycle holds the target.
	ErrCycleInProgress = errors.New("sync cycle already running for target")
)

// CycleStatus is the outcome of one sync cycle
type CycleStatus string

const (
	CycleSuccess CycleStatus = "success"
	CycleSkipped CycleStatus = "skipped"
	CycleError   CycleStatus = "error"
)

// EventSourceFunc resolves the event source for a host mode
type EventSourceFunc func(enterprise bool) (EventSource, error)

// TargetStore persists the target checkpoint
type TargetStore interface {
	UpdateCheckpoint(owner, name, checkpoint string, syncedAt time.Time) error
}

// AggregateStore loads and saves aggregates. Get returns nil for a missing
// aggregate or one whose backfill has not finished.
type AggregateStore interface {
	Get(login, target string) (*models.Aggregate, error)
	Update(login, target string, agg *models.Aggregate) error
}

// EngineConfig bounds a feed scan
type EngineConfig struct {
	Window   time.Duration
	MaxPages int
	PageSize int
}

// CycleResult summarizes one cycle
type CycleResult struct {
	Target        string
	Status        CycleStatus
	ScanState     ScanState
	EventsSeen    int
	EventsHandled int
	UsersMerged   []string
	UsersSkipped  []string
	Checkpoint    string
	// Partial is set when a feed page failed after earlier pages were merged.
	Partial bool
}

// Engine runs incremental sync cycles
type Engine struct {
	sources    EventSourceFunc
	targets    TargetStore
	aggregates AggregateStore
	cfg        EngineConfig
	locks      *targetLocks
	now        func() time.Time
}

// NewEngine creates an engine
func NewEngine(sources EventSourceFunc, targets TargetStore, aggregates AggregateStore, cfg EngineConfig) *Engine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &Engine{
		sources:    sources,
		targets:    targets,
		aggregates: aggregates,
		cfg:        cfg,
		locks:      newTargetLocks(),
		now:        time.Now,
	}
}

// SyncCycle reads the target's feed newest first down to the stored
// checkpoint, the window start or the page cap, merges what it found into
// the aggregates of known contributors, then advances the checkpoint.
// The checkpoint only moves once every merge has been written.
func (e *Engine) SyncCycle(ctx context.Context, target *models.Target) (*CycleResult, error) {
	fullName := target.FullName()
	result := &CycleResult{Target: fullName, Checkpoint: target.Checkpoint}

	release, ok := e.locks.tryLock(fullName)
	if !ok {
		result.Status = CycleSkipped
		return result, ErrCycleInProgress
	}
	defer release()

	log := logger.WithFields(logrus.Fields{"target": fullName, "enterprise": target.Enterprise})

	src, err := e.sources(target.Enterprise)
	if err != nil {
		result.Status = CycleError
		return result, err
	}

	now := e.now()
	scan := newFeedScan(target.Checkpoint, now.Add(-e.cfg.Window))
	dispatcher := NewDispatcher(src)
	buffer := NewCycleBuffer()
	pager := src.EventsPager(target.Owner, target.Name, e.cfg.PageSize)

	var pageErr error
	for scan.state == ScanScanning {
		if pager.Done() || (e.cfg.MaxPages > 0 && pager.PagesFetched() >= e.cfg.MaxPages) {
			scan.exhaust()
			break
		}

		items, err := pager.Next(ctx)
		if err != nil {
			if fatal := gateway.FatalForTarget(err); fatal != nil {
				result.Status = CycleError
				return result, fatal
			}
			pageErr = err
			break
		}

		for _, raw := range items {
			result.EventsSeen++
			buffer.Observe(raw.GetID())
			if scan.observe(raw.GetID(), raw.GetCreatedAt().Time) != ScanScanning {
				break
			}

			ev, recognized, err := dispatcher.Classify(raw, target.Owner, target.Name)
			if err != nil {
				log.WithError(err).Warn("Skipping malformed event")
				continue
			}
			if !recognized {
				log.WithField("event_type", raw.GetType()).Debug("Skipping unrecognized event")
				continue
			}
			scan.markNewest(ev.ID)

			out, err := dispatcher.Dispatch(ctx, ev)
			if err != nil {
				if ctx.Err() != nil {
					result.Status = CycleError
					return result, ctx.Err()
				}
				log.WithError(err).WithField("event_id", ev.ID).Warn("Skipping event")
				continue
			}
			buffer.Add(out)
			result.EventsHandled++
		}
	}
	result.ScanState = scan.state

	if pageErr != nil && pager.PagesFetched() == 0 {
		result.Status = CycleError
		return result, pageErr
	}

	if scan.stale() {
		log.Info("Target is up to date")
		result.Status = CycleSkipped
		return result, ErrCheckpointStale
	}

	for _, login := range buffer.Users() {
		if !target.HasContributor(login) {
			result.UsersSkipped = append(result.UsersSkipped, login)
			continue
		}

		agg, err := e.aggregates.Get(login, fullName)
		if err != nil {
			result.Status = CycleError
			return result, fmt.Errorf("load aggregate %s: %w", login, err)
		}
		if agg == nil {
			// backfill still pending
			result.UsersSkipped = append(result.UsersSkipped, login)
			continue
		}

		// a contributor backfilled after the last cycle already holds the
		// events up to their own checkpoint
		stats := MergeAggregate(agg, buffer.Since(login, agg.Checkpoint))
		if pageErr == nil && scan.newest != "" {
			agg.Checkpoint = scan.newest
		}
		agg.UpdatedAt = now
		if err := e.aggregates.Update(login, fullName, agg); err != nil {
			result.Status = CycleError
			return result, fmt.Errorf("save aggregate %s: %w", login, err)
		}

		result.UsersMerged = append(result.UsersMerged, login)
		log.WithFields(logrus.Fields{
			"user":           login,
			"commits_added":  stats.CommitsAdded,
			"issues_added":   stats.IssuesAdded,
			"issues_updated": stats.IssuesUpdated,
			"prs_added":      stats.PullRequestsAdded,
			"prs_updated":    stats.PullRequestsUpdated,
			"comments_added": stats.CommentsAdded,
		}).Info("Merged activity")
	}

	if pageErr != nil {
		// the next cycle starts again from the unchanged checkpoint
		result.Status = CycleError
		result.Partial = true
		return result, pageErr
	}

	checkpoint := target.Checkpoint
	if scan.newest != "" {
		checkpoint = scan.newest
	}
	if err := e.targets.UpdateCheckpoint(target.Owner, target.Name, checkpoint, now); err != nil {
		result.Status = CycleError
		return result, fmt.Errorf("advance checkpoint: %w", err)
	}
	target.Checkpoint = checkpoint
	target.LastSyncedAt = &now

	result.Checkpoint = checkpoint
	result.Status = CycleSuccess
	log.WithFields(logrus.Fields{
		"state":          scan.state.String(),
		"events_seen":    result.EventsSeen,
		"events_handled": result.EventsHandled,
		"checkpoint":     checkpoint,
	}).Info("Sync cycle completed")
	return result, nil
}

// targetLocks keeps at most one cycle per target
type targetLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newTargetLocks() *targetLocks {
	return &targetLocks{held: make(map[string]bool)}
}

func (l *targetLocks) tryLock(key string) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true
}
