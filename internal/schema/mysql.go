package schema

import (
	"context"

	"github.com/koustreak/pdo/internal/database"
)

type mysqlInspector struct {
	db database.DB
}

func (m *mysqlInspector) InspectTable(ctx context.Context, table string) (*TableInfo, error) {
	const q = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES'   AS is_nullable,
			c.column_key = 'PRI'    AS is_primary_key,
			c.column_default,
			c.character_maximum_length
		FROM information_schema.columns c
		WHERE c.table_schema = DATABASE()
		  AND c.table_name   = ?
		ORDER BY c.ordinal_position`

	rows, err := m.db.Query(ctx, q, table)
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

	const fkq = `
		SELECT
			kcu.constraint_name,
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = DATABASE()
		  AND kcu.table_name = ?
		  AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position`

	rows, err = m.db.Query(ctx, fkq, table)
	if err != nil {
		return nil, err
	}
	if info.ForeignKeys, err = scanForeignKeys(rows); err != nil {
		return nil, err
	}
	return info, nil
}
