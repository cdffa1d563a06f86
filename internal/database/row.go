package database

import "errors"

// ScanRows reads all rows from the result set and returns them as a slice
// of maps, where each key is the column name and each value is the Go-native
// representation of the DB value. []byte values are returned as strings.
//
// The returned slice is always non-nil (empty slice on zero rows).
// ScanRows always closes the Rows, so callers do not need to call Close().
func ScanRows(rows Rows) ([]map[string]any, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, passOrWrap(err, "failed to read column names")
	}

	result := make([]map[string]any, 0)

	for rows.Next() {
		// Allocate scan targets as *any so the driver can write any type.
		dest := make([]any, len(columns))
		destPtrs := make([]any, len(columns))
		for i := range dest {
			destPtrs[i] = &dest[i]
		}

		if err := rows.Scan(destPtrs...); err != nil {
			return nil, passOrWrap(err, "failed to scan row")
		}

		result = append(result, toMap(columns, dest))
	}

	if err := rows.Err(); err != nil {
		return nil, passOrWrap(err, "error during row iteration")
	}

	return result, nil
}

// ScanRow reads a single row and returns it as a map.
// A missing row surfaces as the driver's not_found DBError.
func ScanRow(row Row, columns []string) (map[string]any, error) {
	dest := make([]any, len(columns))
	destPtrs := make([]any, len(columns))
	for i := range dest {
		destPtrs[i] = &dest[i]
	}

	if err := row.Scan(destPtrs...); err != nil {
		return nil, passOrWrap(err, "failed to scan single row")
	}

	return toMap(columns, dest), nil
}

func toMap(columns []string, values []any) map[string]any {
	m := make(map[string]any, len(columns))
	for i, col := range columns {
		if b, ok := values[i].([]byte); ok {
			m[col] = string(b)
			continue
		}
		m[col] = values[i]
	}
	return m
}

// passOrWrap keeps driver DBErrors intact and wraps anything else.
func passOrWrap(err error, msg string) error {
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return err
	}
	return errQuery(msg, err)
}
