package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/bufia/equipment-booking-backend/internal/booking"
	"github.com/bufia/equipment-booking-backend/internal/logger"
	"github.com/bufia/equipment-booking-backend/internal/machine"
)

const jobTimeout = 2 * time.Minute

// Runner holds the background jobs the scheduler drives.
type Runner struct {
	bookings booking.Service
	machines machine.Service
	log      *slog.Logger
}

func NewRunner(bookings booking.Service, machines machine.Service) *Runner {
	return &Runner{
		bookings: bookings,
		machines: machines,
		log:      logger.WithService("jobs"),
	}
}

// CompleteElapsedReservations moves approved reservations whose window
// has passed into completed.
func (r *Runner) CompleteElapsedReservations() {
	r.runWithRecovery("complete_elapsed_reservations", func(ctx context.Context) error {
		_, err := r.bookings.CompleteElapsed(ctx)
		return err
	})
}

// RefreshMachineStatuses realigns every machine's cached status with the
// live reservation and maintenance data.
func (r *Runner) RefreshMachineStatuses() {
	r.runWithRecovery("refresh_machine_statuses", func(ctx context.Context) error {
		_, err := r.machines.RecomputeAllStatuses(ctx)
		return err
	})
}

// runWithRecovery runs a job with a bounded context and converts panics
// into logged errors so one bad run never kills the scheduler.
func (r *Runner) runWithRecovery(name string, fn func(ctx context.Context) error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("job panicked", "job", name, "panic", rec)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		r.log.Error("job failed", "job", name, "error", err, "duration", time.Since(start))
		return
	}
	r.log.Debug("job finished", "job", name, "duration", time.Since(start))
}
