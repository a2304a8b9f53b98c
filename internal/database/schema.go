package database

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations create the two tables of the booking lifecycle.  The generated
// active_* columns are NULL for terminal bookings, so the unique keys only
// constrain active ones: one per slot and one per (user, vehicle).
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS slots (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		floor_number INT NOT NULL,
		slot_number INT NOT NULL,
		slot_type ENUM('Compact','Regular','Large','EV','Accessible') NOT NULL DEFAULT 'Regular',
		status ENUM('Available','Reserved','Occupied') NOT NULL DEFAULT 'Available',
		UNIQUE KEY uq_slots_floor_number (floor_number, slot_number),
		KEY idx_slots_status (status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		vehicle_id BIGINT UNSIGNED NOT NULL,
		slot_id BIGINT UNSIGNED NOT NULL,
		fare_cents INT UNSIGNED NOT NULL DEFAULT 0,
		status ENUM('Booked','CheckedIn','Completed','Cancelled') NOT NULL DEFAULT 'Booked',
		booking_time DATETIME(6) NOT NULL,
		checkin_time DATETIME(6) NULL,
		checkout_time DATETIME(6) NULL,
		active_slot_id BIGINT UNSIGNED AS (CASE WHEN status IN ('Booked','CheckedIn') THEN slot_id END) STORED,
		active_user_vehicle VARCHAR(41) AS (CASE WHEN status IN ('Booked','CheckedIn') THEN CONCAT(user_id, ':', vehicle_id) END) STORED,
		UNIQUE KEY uq_bookings_active_slot (active_slot_id),
		UNIQUE KEY uq_bookings_active_user_vehicle (active_user_vehicle),
		KEY idx_bookings_status_time (status, booking_time),
		KEY idx_bookings_user_vehicle (user_id, vehicle_id),
		CONSTRAINT fk_bookings_slot FOREIGN KEY (slot_id) REFERENCES slots (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates missing tables.  It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
