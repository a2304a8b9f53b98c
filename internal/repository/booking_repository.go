package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/iliyamo/parking-slot-reservation/internal/model"
)

// BookingRepo provides data access to the bookings table.  Every method that
// changes a booking's status runs inside a caller supplied transaction so the
// matching slot write can be committed or rolled back together with it.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingColumns = `id, user_id, vehicle_id, slot_id, fare_cents, status, booking_time, checkin_time, checkout_time`

type rowScanner interface {
    Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
    var (
        b        model.Booking
        checkin  sql.NullTime
        checkout sql.NullTime
    )
    if err := row.Scan(&b.ID, &b.UserID, &b.VehicleID, &b.SlotID, &b.FareCents, &b.Status, &b.BookingTime, &checkin, &checkout); err != nil {
        return nil, err
    }
    if checkin.Valid {
        t := checkin.Time
        b.CheckinTime = &t
    }
    if checkout.Valid {
        t := checkout.Time
        b.CheckoutTime = &t
    }
    return &b, nil
}

// tryCreateSQL inserts a booking only when no active booking holds the same
// slot or the same (user, vehicle) pair.  The existence check and the insert
// are one statement, so there is no window between them.
const tryCreateSQL = `INSERT INTO bookings (user_id, vehicle_id, slot_id, fare_cents, status, booking_time)
SELECT ?, ?, ?, ?, 'Booked', ?
FROM DUAL
WHERE NOT EXISTS (
    SELECT 1 FROM bookings
    WHERE status IN ('Booked', 'CheckedIn')
      AND ((user_id = ? AND vehicle_id = ?) OR slot_id = ?)
)`

// TryCreateTx performs the duplicate-guarded insert and returns the new id.
// ErrConflict is returned when the guard matched an active booking (zero rows
// affected) or when the unique active-booking indexes rejected the row.
// ErrSlotNotFound is returned when the slot foreign key does not resolve.
func (r *BookingRepo) TryCreateTx(ctx context.Context, tx *sql.Tx, nb model.NewBooking) (uint64, error) {
    res, err := tx.ExecContext(ctx, tryCreateSQL,
        nb.UserID, nb.VehicleID, nb.SlotID, nb.FareCents, nb.BookingTime.UTC(),
        nb.UserID, nb.VehicleID, nb.SlotID,
    )
    if err != nil {
        return 0, mapMySQLError(err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return 0, err
    }
    if n == 0 {
        return 0, ErrConflict
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// GetByID retrieves a booking by its ID.  It returns ErrBookingNotFound if
// there is no matching row.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    return b, nil
}

// LockByIDTx reads a booking with an exclusive row lock held until the
// transaction ends.  Concurrent callers on the same id queue behind it.
func (r *BookingRepo) LockByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
    b, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, mapMySQLError(err)
    }
    return b, nil
}

// TransitionTx moves a booking from one status to another and, depending on
// timing, stamps checkin_time or checkout_time with at.  The statement is
// conditional on the current status; ErrConflict is returned when the row no
// longer has status from.
func (r *BookingRepo) TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.BookingStatus, timing model.TimingField, at time.Time) error {
    var (
        res sql.Result
        err error
    )
    switch timing {
    case model.TimingNone:
        res, err = tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ? AND status = ?`, to, id, from)
    case model.TimingCheckIn:
        res, err = tx.ExecContext(ctx, `UPDATE bookings SET status = ?, checkin_time = ? WHERE id = ? AND status = ?`, to, at.UTC(), id, from)
    case model.TimingCheckOut:
        res, err = tx.ExecContext(ctx, `UPDATE bookings SET status = ?, checkout_time = ? WHERE id = ? AND status = ?`, to, at.UTC(), id, from)
    default:
        return fmt.Errorf("unknown timing field %d", timing)
    }
    if err != nil {
        return mapMySQLError(err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return nil
}

// LockStaleTx returns every Booked booking created before cutoff and locks
// those rows for the rest of the transaction.  When there are none, it
// returns an empty slice and nil error.
func (r *BookingRepo) LockStaleTx(ctx context.Context, tx *sql.Tx, cutoff time.Time) ([]model.Booking, error) {
    rows, err := tx.QueryContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE status = 'Booked' AND booking_time < ? ORDER BY id FOR UPDATE`,
        cutoff.UTC(),
    )
    if err != nil {
        return nil, mapMySQLError(err)
    }
    defer rows.Close()
    stale := []model.Booking{}
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        stale = append(stale, *b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return stale, nil
}

// CancelTx marks the given bookings Cancelled if they are still Booked and
// returns how many rows changed.  Already cancelled rows are left untouched,
// which makes repeated calls harmless.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, ids []uint64) (int64, error) {
    if len(ids) == 0 {
        return 0, nil
    }
    query := `UPDATE bookings SET status = 'Cancelled' WHERE status = 'Booked' AND id IN (` + placeholders(len(ids)) + `)`
    args := make([]interface{}, 0, len(ids))
    for _, id := range ids {
        args = append(args, id)
    }
    res, err := tx.ExecContext(ctx, query, args...)
    if err != nil {
        return 0, mapMySQLError(err)
    }
    return res.RowsAffected()
}

// placeholders returns "?, ?, ?" with n markers.
func placeholders(n int) string {
    if n <= 0 {
        return ""
    }
    return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
