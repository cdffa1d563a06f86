// Package schema describes tables of a connected database: columns, primary
// keys and foreign keys, read from the engine's catalog.
package schema

import (
	"context"
	"fmt"

	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/errs"
)

// Inspector reads table metadata from one connected database.
type Inspector interface {
	// InspectTable returns column and foreign key details for a table in the
	// connection's current schema. A missing table is a not_found DBError.
	InspectTable(ctx context.Context, table string) (*TableInfo, error)
}

// For returns the Inspector matching the driver that opened db.
func For(db database.DB) (Inspector, error) {
	switch db.DriverName() {
	case "pgsql":
		return &pgInspector{db: db}, nil
	case "mysql":
		return &mysqlInspector{db: db}, nil
	case "sqlite":
		return &sqliteInspector{db: db}, nil
	default:
		return nil, database.NewError(errs.ErrKindInvalidInput, database.Code{},
			fmt.Sprintf("schema inspection is not supported for driver %q", db.DriverName()), nil)
	}
}

func tableNotFound(table string) *database.DBError {
	msg := fmt.Sprintf("table %q not found", table)
	return database.NewDriverError(errs.ErrKindNotFound, msg, nil,
		database.ErrorInfo{"42S02", nil, msg})
}

// scanForeignKeys reads rows of (name, column, ref_table, ref_column).
func scanForeignKeys(rows database.Rows) ([]ForeignKey, error) {
	defer rows.Close()

	fks := make([]ForeignKey, 0)
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Name, &fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}
