package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/warden-hq/warden/internal/auth"
	jobmetrics "github.com/warden-hq/warden/internal/jobs"
	"github.com/warden-hq/warden/internal/shared"
)

// TokenCleanupJob deletes bearer tokens whose account was removed or
// deactivated after the token was issued. Tokens expire on their own via TTL;
// the cleanup closes the window where a token for a dead account is still
// resolvable.
type TokenCleanupJob struct {
	Tokens   *auth.TokenStore
	Accounts auth.Repository
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewTokenCleanupJob wires dependencies for the cleanup handler.
func NewTokenCleanupJob(tokens *auth.TokenStore, accounts auth.Repository, logger *slog.Logger, metrics *jobmetrics.Metrics) *TokenCleanupJob {
	return &TokenCleanupJob{
		Tokens:   tokens,
		Accounts: accounts,
		Logger:   logger,
		Metrics:  metrics,
	}
}

// Handle processes TaskTokenCleanup tasks.
func (j *TokenCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Tokens == nil || j.Accounts == nil {
		return errors.New("token cleanup: handler not configured")
	}
	var payload TokenCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskTokenCleanup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()

	removed, err := j.Tokens.SweepOrphans(ctx, j.accountAlive)
	if err != nil {
		resultErr = err
		logger.Error("sweep tokens", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed token cleanup",
		slog.Int("tokens_removed", removed),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *TokenCleanupJob) accountAlive(ctx context.Context, userID int64) (bool, error) {
	user, err := j.Accounts.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsActive, nil
}

func (j *TokenCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTokenCleanup))
	}
	return slog.Default().With(slog.String("job", TaskTokenCleanup))
}

func (j *TokenCleanupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
