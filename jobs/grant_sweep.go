package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/warden-hq/warden/internal/jobs"
	"github.com/warden-hq/warden/internal/rbac"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// GrantSweepJob re-runs permission reconciliation over stored direct grants.
// Role assignments drift after grants are written; a sweep drops any direct
// grant that a role meanwhile started covering, restoring the invariant that
// direct grants never duplicate inherited permissions.
type GrantSweepJob struct {
	Store      rbac.Store
	Reconciler *rbac.Reconciler
	Pool       *pgxpool.Pool
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewGrantSweepJob wires dependencies for the sweep handler.
func NewGrantSweepJob(store rbac.Store, reconciler *rbac.Reconciler, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *GrantSweepJob {
	return &GrantSweepJob{
		Store:      store,
		Reconciler: reconciler,
		Pool:       pool,
		Logger:     logger,
		Metrics:    metrics,
	}
}

// Handle processes TaskGrantSweep tasks.
func (j *GrantSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reconciler == nil || j.Store == nil {
		return errors.New("grant sweep: handler not configured")
	}
	var payload GrantSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskGrantSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()

	userIDs, err := j.targetUsers(ctx, payload.UserID)
	if err != nil {
		resultErr = err
		logger.Error("load sweep targets", slog.Any("error", err))
		return resultErr
	}
	if len(userIDs) == 0 {
		logger.Info("no accounts to sweep")
		return resultErr
	}

	removed := 0
	for _, userID := range userIDs {
		dropped, err := j.sweepUser(ctx, userID)
		if err != nil {
			resultErr = err
			logger.Error("sweep account", slog.Int64("user_id", userID), slog.Any("error", err))
			return resultErr
		}
		removed += dropped
	}
	j.metrics().AddSweptGrants(removed)

	logger.Info("completed grant sweep",
		slog.Int("accounts", len(userIDs)),
		slog.Int("grants_removed", removed),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *GrantSweepJob) sweepUser(ctx context.Context, userID int64) (int, error) {
	// Scope each account with a timeout so one stuck lock cannot stall the run.
	userCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	before, err := j.Store.DirectPermissions(userCtx, userID)
	if err != nil {
		return 0, err
	}
	if len(before) == 0 {
		return 0, nil
	}
	ids := make([]int64, 0, len(before))
	for _, perm := range before {
		ids = append(ids, perm.ID)
	}
	after, err := j.Reconciler.Reconcile(userCtx, userID, ids)
	if err != nil {
		return 0, err
	}
	return len(before) - len(after), nil
}

func (j *GrantSweepJob) targetUsers(ctx context.Context, userID int64) ([]int64, error) {
	if userID > 0 {
		return []int64{userID}, nil
	}
	if j.Pool == nil {
		return nil, errors.New("grant sweep: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `SELECT id FROM users WHERE is_admin = FALSE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (j *GrantSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskGrantSweep))
	}
	return slog.Default().With(slog.String("job", TaskGrantSweep))
}

func (j *GrantSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
