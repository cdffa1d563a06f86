package schema

import (
	"context"

	"github.com/koustreak/pdo/internal/database"
)

type pgInspector struct {
	db database.DB
}

func (p *pgInspector) InspectTable(ctx context.Context, table string) (*TableInfo, error) {
	const q = `
		SELECT
			c.column_name::text,
			c.data_type::text,
			c.is_nullable = 'YES'              AS is_nullable,
			COALESCE(pk.is_pk, false)          AS is_primary_key,
			c.column_default::text,
			c.character_maximum_length::int8
		FROM information_schema.columns c

		-- Primary key check
		LEFT JOIN (
			SELECT kcu.column_name, true AS is_pk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
			  AND tc.table_schema = current_schema()
			  AND tc.table_name   = $1
		) pk ON pk.column_name = c.column_name

		WHERE c.table_schema = current_schema() AND c.table_name = $1
		ORDER BY c.ordinal_position`

	rows, err := p.db.Query(ctx, q, table)
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
			tc.constraint_name::text,
			kcu.column_name::text,
			ccu.table_name::text,
			ccu.column_name::text
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = current_schema()
		  AND tc.table_name = $1
		ORDER BY tc.constraint_name`

	rows, err = p.db.Query(ctx, fkq, table)
	if err != nil {
		return nil, err
	}
	if info.ForeignKeys, err = scanForeignKeys(rows); err != nil {
		return nil, err
	}
	return info, nil
}

// scanColumns reads rows of (name, type, nullable, pk, default, max_length).
func scanColumns(rows database.Rows, info *TableInfo) error {
	defer rows.Close()

	for rows.Next() {
		var col ColumnInfo
		if err := rows.Scan(
			&col.Name,
			&col.DataType,
			&col.Nullable,
			&col.PrimaryKey,
			&col.Default,
			&col.MaxLength,
		); err != nil {
			return err
		}
		info.Columns = append(info.Columns, col)
	}
	return rows.Err()
}
