package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// SlotRepo encapsulates database operations for slots.  Only the booking
// lifecycle writes slots.status; everything else here is read-only.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo constructs a SlotRepo given a DB handle.
func NewSlotRepo(db *sql.DB) *SlotRepo {
	return &SlotRepo{db: db}
}

// SetStatusTx overwrites the status column of exactly one slot.  It returns
// ErrSlotNotFound when no slot has the given id.
func (r *SlotRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.SlotStatus) error {
	res, err := tx.ExecContext(ctx, `UPDATE slots SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return mapMySQLError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// MySQL reports 0 affected rows when the value did not change, so tell
	// "already in that status" apart from "no such slot".
	ok, err := r.existsTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSlotNotFound
	}
	return nil
}

// ClaimTx moves a slot from one status to another only if it currently has
// status from.  ErrSlotUnavailable is returned when the slot exists in some
// other status and ErrSlotNotFound when it does not exist.
func (r *SlotRepo) ClaimTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.SlotStatus) error {
	res, err := tx.ExecContext(ctx, `UPDATE slots SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return mapMySQLError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	ok, err := r.existsTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSlotNotFound
	}
	return ErrSlotUnavailable
}

// BulkSetStatusTx sets the same status on every listed slot.  Passing an
// empty slice has no effect and returns nil.
func (r *SlotRepo) BulkSetStatusTx(ctx context.Context, tx *sql.Tx, ids []uint64, status model.SlotStatus) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, status)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := tx.ExecContext(ctx, `UPDATE slots SET status = ? WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	return mapMySQLError(err)
}

func (r *SlotRepo) existsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM slots WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByID retrieves a slot by its ID.  It returns ErrSlotNotFound if there
// is no matching row.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*model.Slot, error) {
	const q = `SELECT id, floor_number, slot_number, slot_type, status FROM slots WHERE id = ?`
	var s model.Slot
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.FloorNumber, &s.SlotNumber, &s.SlotType, &s.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

// List returns slots ordered by floor and slot number, narrowed by the
// optional floor and status filter and paginated by limit/offset.  When no
// slots match it returns an empty slice and nil error.
func (r *SlotRepo) List(ctx context.Context, f model.SlotFilter) ([]model.Slot, error) {
	query := `SELECT id, floor_number, slot_number, slot_type, status FROM slots WHERE 1 = 1`
	args := make([]interface{}, 0, len(f.Statuses)+3)
	if f.Floor != nil {
		query += ` AND floor_number = ?`
		args = append(args, *f.Floor)
	}
	if len(f.Statuses) > 0 {
		query += ` AND status IN (` + placeholders(len(f.Statuses)) + `)`
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	query += ` ORDER BY floor_number, slot_number LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := []model.Slot{}
	for rows.Next() {
		var s model.Slot
		if err := rows.Scan(&s.ID, &s.FloorNumber, &s.SlotNumber, &s.SlotType, &s.Status); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}
