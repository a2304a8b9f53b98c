// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// lifecycle engine to distinguish between different failure scenarios
// without inspecting driver errors.
package repository

import (
    "errors"
    "fmt"

    "github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when an insert or update cannot be performed
// because an active booking already holds the slot or the (user, vehicle)
// pair.
var ErrConflict = errors.New("conflict")

// ErrBookingNotFound is returned when no booking matches the given id.
var ErrBookingNotFound = errors.New("booking not found")

// ErrSlotNotFound is returned when no slot matches the given id.
var ErrSlotNotFound = errors.New("slot not found")

// ErrSlotUnavailable is returned when a slot exists but is not in the
// status a conditional claim expects.
var ErrSlotUnavailable = errors.New("slot not available")

// ErrRetryable marks a statement that lost a lock to a concurrent
// transaction (deadlock or lock wait timeout).  The transaction is rolled
// back and may be run again from the start.
var ErrRetryable = errors.New("lock contention")

// MySQL server error numbers translated by mapMySQLError.
const (
    mysqlDupEntry        = 1062
    mysqlLockWaitTimeout = 1205
    mysqlDeadlock        = 1213
    mysqlNoReferencedRow = 1452
)

// mapMySQLError converts driver errors that carry domain meaning into
// repository sentinels.  Any other error is returned unchanged.
func mapMySQLError(err error) error {
    var me *mysql.MySQLError
    if !errors.As(err, &me) {
        return err
    }
    switch me.Number {
    case mysqlDupEntry:
        return fmt.Errorf("%w: %s", ErrConflict, me.Message)
    case mysqlDeadlock, mysqlLockWaitTimeout:
        return fmt.Errorf("%w: %s", ErrRetryable, me.Message)
    case mysqlNoReferencedRow:
        return fmt.Errorf("%w: %s", ErrSlotNotFound, me.Message)
    }
    return err
}

// IsRetryable reports whether err is lock contention, either already mapped
// to ErrRetryable or a raw driver error such as one returned by Commit.
func IsRetryable(err error) bool {
    if errors.Is(err, ErrRetryable) {
        return true
    }
    var me *mysql.MySQLError
    return errors.As(err, &me) && (me.Number == mysqlDeadlock || me.Number == mysqlLockWaitTimeout)
}
