package jobs

import (
	"context"
	"time"

	"github.com/anjiri1684/smart_roommate/services"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const ResetTokenPurgeSpec = "@hourly"

// PurgeExpiredResetTokens clears password reset tokens whose expiry has passed.
func PurgeExpiredResetTokens(ctx context.Context, users services.UserStore, now time.Time, log *zap.Logger) {
	log.Debug("running job: PurgeExpiredResetTokens")

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	n, err := users.PurgeExpiredResetTokens(ctx, now)
	if err != nil {
		log.Error("purging expired reset tokens", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("expired reset tokens purged", zap.Int64("count", n))
	}
}

// Schedule registers the maintenance jobs on c.
func Schedule(c *cron.Cron, users services.UserStore, log *zap.Logger) error {
	_, err := c.AddFunc(ResetTokenPurgeSpec, func() {
		PurgeExpiredResetTokens(context.Background(), users, time.Now(), log)
	})
	return err
}
