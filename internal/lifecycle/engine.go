// Package lifecycle owns the booking state machine.  It creates bookings
// through the duplicate guard, advances them through check-in and check-out
// and expires stale reservations, keeping each booking write and its slot
// write in one transaction.
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// DefaultBookingTTL is how long a booking may stay Booked before expiry.
const DefaultBookingTTL = 15 * time.Minute

const (
	createAttempts     = 3
	createRetryBackoff = 20 * time.Millisecond
)

// TxBeginner opens transactions.  *sql.DB satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// BookingStore is the bookings side of the store.
type BookingStore interface {
	TryCreateTx(ctx context.Context, tx *sql.Tx, nb model.NewBooking) (uint64, error)
	LockByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error)
	TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.BookingStatus, timing model.TimingField, at time.Time) error
	LockStaleTx(ctx context.Context, tx *sql.Tx, cutoff time.Time) ([]model.Booking, error)
	CancelTx(ctx context.Context, tx *sql.Tx, ids []uint64) (int64, error)
}

// SlotStore is the slots side of the store.
type SlotStore interface {
	ClaimTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.SlotStatus) error
	SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.SlotStatus) error
	BulkSetStatusTx(ctx context.Context, tx *sql.Tx, ids []uint64, status model.SlotStatus) error
}

// Publisher receives lifecycle events after commit.
type Publisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// CreateRequest is the input of Create.
type CreateRequest struct {
	UserID    uint64
	VehicleID uint64
	SlotID    uint64
	FareCents uint32
}

// Engine is safe for concurrent use; all coordination happens in the store.
type Engine struct {
	db       TxBeginner
	bookings BookingStore
	slots    SlotStore
	events   Publisher
	log      logrus.FieldLogger
	now      func() time.Time
	ttl      time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithBookingTTL overrides DefaultBookingTTL.
func WithBookingTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.ttl = ttl
		}
	}
}

// WithPublisher sets where lifecycle events go.
func WithPublisher(p Publisher) Option { return func(e *Engine) { e.events = p } }

// WithLogger sets the engine logger.
func WithLogger(l logrus.FieldLogger) Option { return func(e *Engine) { e.log = l } }

// NewEngine wires an Engine and panics if any store is nil.
func NewEngine(db TxBeginner, bookings BookingStore, slots SlotStore, opts ...Option) *Engine {
	if db == nil || bookings == nil || slots == nil {
		panic("nil dependency passed to NewEngine")
	}
	e := &Engine{
		db:       db,
		bookings: bookings,
		slots:    slots,
		log:      logrus.StandardLogger(),
		now:      time.Now,
		ttl:      DefaultBookingTTL,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Create books a slot for a (user, vehicle) pair.  The new booking is Booked
// and its slot Reserved when this returns nil.  A transaction that loses a
// lock to a concurrent create is run again, up to createAttempts times.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*model.Booking, error) {
	const op = "create"
	if req.UserID == 0 || req.VehicleID == 0 || req.SlotID == 0 {
		return nil, newError(KindValidation, op, "user_id, vehicle_id and slot_id are required", nil)
	}

	for attempt := 1; ; attempt++ {
		b, err := e.createOnce(ctx, op, req)
		if err == nil || !repository.IsRetryable(err) || attempt == createAttempts {
			return b, err
		}
		e.log.WithFields(logrus.Fields{"slot_id": req.SlotID, "attempt": attempt}).
			WithError(err).Debug("create lost a lock, retrying")
		select {
		case <-ctx.Done():
			return nil, newError(KindStorage, op, "create cancelled", ctx.Err())
		case <-time.After(time.Duration(attempt) * createRetryBackoff):
		}
	}
}

func (e *Engine) createOnce(ctx context.Context, op string, req CreateRequest) (*model.Booking, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, newError(KindStorage, op, "failed to start transaction", err)
	}
	done := false
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()

	at := e.now().UTC()
	id, err := e.bookings.TryCreateTx(ctx, tx, model.NewBooking{
		UserID:      req.UserID,
		VehicleID:   req.VehicleID,
		SlotID:      req.SlotID,
		FareCents:   req.FareCents,
		BookingTime: at,
	})
	switch {
	case errors.Is(err, repository.ErrConflict):
		return nil, newError(KindConflict, op, "an active booking already exists for this slot or vehicle", err)
	case errors.Is(err, repository.ErrSlotNotFound):
		return nil, newError(KindNotFound, op, fmt.Sprintf("slot %d not found", req.SlotID), err)
	case err != nil:
		return nil, newError(KindStorage, op, "failed to insert booking", err)
	}

	err = e.slots.ClaimTx(ctx, tx, req.SlotID, model.SlotAvailable, SlotStatusFor(model.BookingBooked))
	switch {
	case errors.Is(err, repository.ErrSlotNotFound):
		return nil, newError(KindNotFound, op, fmt.Sprintf("slot %d not found", req.SlotID), err)
	case errors.Is(err, repository.ErrSlotUnavailable), errors.Is(err, repository.ErrConflict):
		return nil, newError(KindConflict, op, fmt.Sprintf("slot %d is not available", req.SlotID), err)
	case err != nil:
		return nil, newError(KindStorage, op, "failed to reserve slot", err)
	}

	if err := tx.Commit(); err != nil {
		done = true
		return nil, newError(KindStorage, op, "failed to commit transaction", err)
	}
	done = true

	b := &model.Booking{
		ID:          id,
		UserID:      req.UserID,
		VehicleID:   req.VehicleID,
		SlotID:      req.SlotID,
		FareCents:   req.FareCents,
		Status:      model.BookingBooked,
		BookingTime: at,
	}
	e.log.WithFields(logrus.Fields{"booking_id": b.ID, "slot_id": b.SlotID, "user_id": b.UserID}).Info("booking created")
	e.publish(ctx, queue.EventBookingCreated, b, at)
	return b, nil
}

// Advance moves a booking one step forward: Booked to CheckedIn, or
// CheckedIn to Completed.
func (e *Engine) Advance(ctx context.Context, id uint64) (*model.Booking, error) {
	return e.advance(ctx, "advance", id, "")
}

// CheckIn advances a booking only if it is Booked.
func (e *Engine) CheckIn(ctx context.Context, id uint64) (*model.Booking, error) {
	return e.advance(ctx, "check-in", id, EventCheckIn)
}

// CheckOut advances a booking only if it is CheckedIn.
func (e *Engine) CheckOut(ctx context.Context, id uint64) (*model.Booking, error) {
	return e.advance(ctx, "check-out", id, EventCheckOut)
}

func (e *Engine) advance(ctx context.Context, op string, id uint64, want Event) (*model.Booking, error) {
	if id == 0 {
		return nil, newError(KindValidation, op, "booking id is required", nil)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, newError(KindStorage, op, "failed to start transaction", err)
	}
	done := false
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()

	// The row lock serializes concurrent advances of the same booking and
	// orders them against a sweep that already locked it.
	b, err := e.bookings.LockByIDTx(ctx, tx, id)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return nil, newError(KindNotFound, op, fmt.Sprintf("booking %d not found", id), err)
	}
	if err != nil {
		return nil, newError(KindStorage, op, "failed to read booking", err)
	}

	ev, ok := AdvanceEvent(b.Status)
	if !ok || (want != "" && ev != want) {
		return nil, newError(KindInvalidTransition, op, fmt.Sprintf("booking %d is %s", id, b.Status), nil)
	}
	t, ok := Next(b.Status, ev)
	if !ok {
		return nil, newError(KindInvalidTransition, op, fmt.Sprintf("booking %d is %s", id, b.Status), nil)
	}

	at := e.now().UTC()
	if err := e.bookings.TransitionTx(ctx, tx, b.ID, t.From, t.To, t.Timing, at); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, newError(KindConflict, op, fmt.Sprintf("booking %d changed concurrently", id), err)
		}
		return nil, newError(KindStorage, op, "failed to update booking", err)
	}

	if err := e.slots.SetStatusTx(ctx, tx, b.SlotID, t.Slot); err != nil {
		// The booking write is already applied inside tx; undo it.
		done = true
		if rbErr := tx.Rollback(); rbErr != nil {
			e.log.WithFields(logrus.Fields{"booking_id": id, "slot_id": b.SlotID}).
				WithError(rbErr).Error("compensation failed")
			return nil, newError(KindStorage, op, "slot update failed and booking could not be reverted", errors.Join(err, rbErr))
		}
		e.log.WithFields(logrus.Fields{"booking_id": id, "slot_id": b.SlotID}).
			WithError(err).Warn("slot update failed, booking reverted")
		return nil, newError(KindCompensatedFailure, op, fmt.Sprintf("slot %d update failed; booking %d left %s", b.SlotID, id, b.Status), err)
	}

	if err := tx.Commit(); err != nil {
		done = true
		return nil, newError(KindStorage, op, "failed to commit transaction", err)
	}
	done = true

	b.Status = t.To
	switch t.Timing {
	case model.TimingCheckIn:
		b.CheckinTime = &at
	case model.TimingCheckOut:
		b.CheckoutTime = &at
	}
	e.log.WithFields(logrus.Fields{"booking_id": b.ID, "slot_id": b.SlotID, "status": b.Status}).Info("booking advanced")
	e.publish(ctx, eventTypeFor(t.To), b, at)
	return b, nil
}

// ExpireStale cancels every Booked booking older than the booking TTL and
// releases its slot.  Running it again without new bookings changes nothing.
func (e *Engine) ExpireStale(ctx context.Context) ([]model.Booking, error) {
	const op = "expire"
	now := e.now().UTC()
	cutoff := now.Add(-e.ttl)

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, newError(KindStorage, op, "failed to start transaction", err)
	}
	done := false
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()

	stale, err := e.bookings.LockStaleTx(ctx, tx, cutoff)
	if err != nil {
		return nil, newError(KindStorage, op, "failed to select stale bookings", err)
	}
	if len(stale) == 0 {
		return nil, nil
	}

	ids := make([]uint64, 0, len(stale))
	slotIDs := make([]uint64, 0, len(stale))
	for _, b := range stale {
		if _, ok := Next(b.Status, EventExpire); !ok {
			continue
		}
		ids = append(ids, b.ID)
		slotIDs = append(slotIDs, b.SlotID)
	}
	if _, err := e.bookings.CancelTx(ctx, tx, ids); err != nil {
		return nil, newError(KindStorage, op, "failed to cancel stale bookings", err)
	}
	if err := e.slots.BulkSetStatusTx(ctx, tx, slotIDs, SlotStatusFor(model.BookingCancelled)); err != nil {
		return nil, newError(KindStorage, op, "failed to release slots", err)
	}
	if err := tx.Commit(); err != nil {
		done = true
		return nil, newError(KindStorage, op, "failed to commit transaction", err)
	}
	done = true

	expired := make([]model.Booking, 0, len(ids))
	for _, b := range stale {
		if b.Status != model.BookingBooked {
			continue
		}
		b.Status = model.BookingCancelled
		expired = append(expired, b)
		e.publish(ctx, queue.EventBookingCancelled, &b, now)
	}
	return expired, nil
}

func (e *Engine) publish(ctx context.Context, typ string, b *model.Booking, at time.Time) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(ctx, queue.NewBookingEvent(typ, b, at)); err != nil {
		e.log.WithFields(logrus.Fields{"booking_id": b.ID, "event": typ}).WithError(err).Warn("publish event failed")
	}
}

func eventTypeFor(s model.BookingStatus) string {
	switch s {
	case model.BookingCheckedIn:
		return queue.EventBookingCheckedIn
	case model.BookingCompleted:
		return queue.EventBookingCompleted
	case model.BookingCancelled:
		return queue.EventBookingCancelled
	}
	return queue.EventBookingCreated
}
