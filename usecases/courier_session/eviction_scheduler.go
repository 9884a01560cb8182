package courier_session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
	"github.com/cockroachdb/errors"

	"github.com/deliveryrouting/courier-backend/models"
	"github.com/deliveryrouting/courier-backend/repositories/clock"
	"github.com/deliveryrouting/courier-backend/utils"
)

const DefaultEvictionSchedule = "*/5 * * * *"

// EvictionScheduler periodically drops stale sessions, so that accounts that stopped calling
// do not keep their entry forever.
type EvictionScheduler struct {
	cache    *CredentialCache
	clock    clock.Clock
	schedule string
}

func NewEvictionScheduler(cache *CredentialCache, clk clock.Clock, schedule string) (*EvictionScheduler, error) {
	if schedule == "" {
		schedule = DefaultEvictionSchedule
	}
	if !gronx.New().IsValid(schedule) {
		return nil, errors.Wrapf(models.BadParameterError, "invalid cache eviction schedule %q", schedule)
	}
	return &EvictionScheduler{cache: cache, clock: clk, schedule: schedule}, nil
}

func (s *EvictionScheduler) NextRun() (time.Time, error) {
	nextTick, err := gronx.NextTickAfter(s.schedule, s.clock.Now(), false)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "computing next tick of %q", s.schedule)
	}
	return nextTick, nil
}

func (s *EvictionScheduler) RunOnce(ctx context.Context) int {
	evicted := s.cache.EvictExpired()
	utils.MetricSessionCacheEvictions.Add(float64(evicted))
	utils.MetricSessionCacheEntries.Set(float64(s.cache.Len()))
	if evicted > 0 {
		utils.LoggerFromContext(ctx).InfoContext(ctx,
			fmt.Sprintf("evicted %d expired courier sessions", evicted),
			slog.Int("remaining", s.cache.Len()))
	}
	return evicted
}

// Run blocks until ctx is done, evicting on every tick of the schedule.
func (s *EvictionScheduler) Run(ctx context.Context) error {
	logger := utils.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "starting courier session eviction", slog.String("schedule", s.schedule))

	for {
		nextTick, err := s.NextRun()
		if err != nil {
			return err
		}
		timer := time.NewTimer(max(nextTick.Sub(s.clock.Now()), 0))

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.InfoContext(ctx, "stopping courier session eviction")
			return nil
		case <-timer.C:
			s.RunOnce(ctx)
		}
	}
}
