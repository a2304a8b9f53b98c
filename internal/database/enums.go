package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/parking-slot-reservation/internal/validation"
)

const columnTypeSQL = `SELECT COLUMN_TYPE FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?`

// LoadEnumTable reads the members of each enumerated column from the live
// schema and freezes them into a validation table.
func LoadEnumTable(ctx context.Context, db *sql.DB, cols ...validation.Column) (validation.EnumTable, error) {
	src := make(map[validation.Column][]string, len(cols))
	for _, col := range cols {
		var typ string
		err := db.QueryRowContext(ctx, columnTypeSQL, col.Table, col.Name).Scan(&typ)
		if errors.Is(err, sql.ErrNoRows) {
			return validation.EnumTable{}, fmt.Errorf("column %s not found", col)
		}
		if err != nil {
			return validation.EnumTable{}, fmt.Errorf("load %s: %w", col, err)
		}
		vals, err := validation.ParseEnumType(typ)
		if err != nil {
			return validation.EnumTable{}, fmt.Errorf("load %s: %w", col, err)
		}
		src[col] = vals
	}
	return validation.NewEnumTable(src), nil
}
