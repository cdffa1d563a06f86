package schema

import (
	"context"
	"fmt"

	"github.com/koustreak/pdo/internal/database"
)

type sqliteInspector struct {
	db database.DB
}

func (s *sqliteInspector) InspectTable(ctx context.Context, table string) (*TableInfo, error) {
	const q = `
		SELECT name, type, "notnull" = 0, pk > 0, dflt_value, NULL
		FROM pragma_table_info(?)
		ORDER BY cid`

	rows, err := s.db.Query(ctx, q, table)
	if err != nil {
		return nil, err
	}
	info := &TableInfo{Name: table, Columns: make([]ColumnInfo, 0)}
	if err := scanColumns(rows, info); err != nil {
		return nil, err
	}
	if len(info.Columns) == 0 {
		return nil, tableNotFound(table)
	}

	// SQLite foreign keys are unnamed; number them by their id.
	const fkq = `
		SELECT id, "from", "table", "to"
		FROM pragma_foreign_key_list(?)
		ORDER BY id, seq`

	rows, err = s.db.Query(ctx, fkq, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	info.ForeignKeys = make([]ForeignKey, 0)
	for rows.Next() {
		var id int
		var fk ForeignKey
		if err := rows.Scan(&id, &fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			return nil, err
		}
		fk.Name = fmt.Sprintf("fk_%s_%d", table, id)
		info.ForeignKeys = append(info.ForeignKeys, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return info, nil
}
