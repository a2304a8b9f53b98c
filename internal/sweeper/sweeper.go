// Package sweeper runs the periodic expiry of stale bookings.
package sweeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// ErrBusy is returned by RunOnce while another sweep holds the lock.
var ErrBusy = errors.New("sweep already running")

// Expirer cancels stale bookings.  *lifecycle.Engine satisfies it.
type Expirer interface {
	ExpireStale(ctx context.Context) ([]model.Booking, error)
}

// Locker serializes sweeps across processes.  *lock.RedisLock satisfies it.
type Locker interface {
	Acquire(ctx context.Context) (token string, ok bool, err error)
	Release(ctx context.Context, token string) error
}

// Sweeper calls ExpireStale on a fixed interval.  Sweeps never overlap
// within one process; with a Locker they also never overlap across
// replicas.
type Sweeper struct {
	expirer  Expirer
	locker   Locker
	interval time.Duration
	timeout  time.Duration
	log      logrus.FieldLogger
	mu       sync.Mutex
}

// New builds a Sweeper.  locker may be nil.
func New(expirer Expirer, locker Locker, interval, timeout time.Duration, log logrus.FieldLogger) *Sweeper {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	return &Sweeper{
		expirer:  expirer,
		locker:   locker,
		interval: interval,
		timeout:  timeout,
		log:      log.WithField("component", "sweeper"),
	}
}

// Start blocks until ctx is done, sweeping once per interval.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithField("interval", s.interval.String()).Info("booking sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("booking sweeper stopped")
			return
		case <-ticker.C:
			n, err := s.RunOnce(ctx)
			switch {
			case errors.Is(err, ErrBusy):
				s.log.Debug("sweep skipped, another sweep is running")
			case err != nil:
				s.log.WithError(err).Error("sweep failed")
			case n > 0:
				s.log.WithField("expired", n).Info("expired stale bookings")
			}
		}
	}
}

// RunOnce performs a single sweep and returns how many bookings expired.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	if !s.mu.TryLock() {
		return 0, ErrBusy
	}
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.locker != nil {
		token, ok, err := s.locker.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, ErrBusy
		}
		defer func() {
			// ctx may already be expired here; release on a fresh one.
			rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer rcancel()
			if err := s.locker.Release(rctx, token); err != nil {
				s.log.WithError(err).Warn("release sweep lock failed")
			}
		}()
	}

	expired, err := s.expirer.ExpireStale(ctx)
	if err != nil {
		return 0, err
	}
	for _, b := range expired {
		s.log.WithFields(logrus.Fields{"booking_id": b.ID, "slot_id": b.SlotID}).Debug("booking expired")
	}
	return len(expired), nil
}
