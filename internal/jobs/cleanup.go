package jobs

import (
	"context"

	"go.uber.org/zap"
)

// CleanupResult counts what a cleanup removed
type CleanupResult struct {
	SessionsCleaned int   `json:"sessions_cleaned"`
	LogsArchived    int   `json:"logs_archived"`
	TokensPurged    int64 `json:"tokens_purged"`
}

// cleanup is best effort: store errors are logged and leave partial counts
func (r *Runner) cleanup(ctx context.Context) (any, error) {
	now := r.now().UTC()
	var result CleanupResult

	if r.deps.Sessions != nil {
		n, err := r.deps.Sessions.DeleteExpired(ctx, now, r.settings.CleanupLimit)
		result.SessionsCleaned = n
		if err != nil {
			r.logger.Warn("session cleanup error", zap.Int("cleaned", n), zap.Error(err))
		} else {
			r.logger.Info("cleaned expired sessions", zap.Int("count", n))
		}
	}

	if r.deps.Tokens != nil {
		n, err := r.deps.Tokens.DeleteExpired(ctx, now)
		if err != nil {
			r.logger.Warn("refresh token purge error", zap.Error(err))
		} else {
			result.TokensPurged = n
			r.logger.Info("purged expired refresh tokens", zap.Int64("count", n))
		}
	}

	return result, nil
}
