package telemetry

import (
	"context"
	"fmt"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

// Restore replays the motor's stored readings from the start of the
// tracker's current day, so hours and energy survive a restart. Older
// readings fill the history buffer only.
func Restore(ctx context.Context, repo domain.Repository, tracker *Tracker, motorID string) error {
	if motorID == "" {
		return fmt.Errorf("motorID is required")
	}

	today := tracker.DayStart()
	readings, err := repo.ListReadings(ctx, motorID, today, 0)
	if err != nil {
		return fmt.Errorf("failed to list readings: %w", err)
	}
	if len(readings) < tracker.cfg.RecentReadings {
		// Top up the buffer with the tail of earlier days.
		older, err := repo.ListReadings(ctx, motorID, today.AddDate(0, 0, -1), tracker.cfg.RecentReadings)
		if err != nil {
			return fmt.Errorf("failed to list readings: %w", err)
		}
		seen := make(map[int64]bool, len(readings))
		for _, r := range readings {
			seen[r.Timestamp] = true
		}
		for _, r := range older {
			if !seen[r.Timestamp] {
				readings = append(readings, r)
			}
		}
	}

	// Newest first from the repository; replay oldest first.
	for i := len(readings) - 1; i >= 0; i-- {
		tracker.Record(motorID, *readings[i])
	}
	return nil
}
