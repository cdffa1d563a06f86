package database

import (
	"errors"
	"testing"

	"github.com/koustreak/pdo/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceRows is an in-memory Rows over fixed values.
type sliceRows struct {
	cols    []string
	data    [][]any
	pos     int
	closed  bool
	scanErr error
	iterErr error
}

func (r *sliceRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *sliceRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	for i, v := range r.data[r.pos-1] {
		*(dest[i].(*any)) = v
	}
	return nil
}

func (r *sliceRows) Columns() ([]string, error) { return r.cols, nil }
func (r *sliceRows) Close()                     { r.closed = true }
func (r *sliceRows) Err() error                 { return r.iterErr }

type sliceRow struct {
	values []any
	err    error
}

func (r sliceRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, v := range r.values {
		*(dest[i].(*any)) = v
	}
	return nil
}

func TestScanRows(t *testing.T) {
	rows := &sliceRows{
		cols: []string{"id", "name", "avatar"},
		data: [][]any{
			{int64(1), []byte("ada"), nil},
			{int64(2), "grace", []byte{0x1}},
		},
	}

	result, err := ScanRows(rows)
	require.NoError(t, err)
	assert.True(t, rows.closed)
	require.Len(t, result, 2)
	assert.Equal(t, map[string]any{"id": int64(1), "name": "ada", "avatar": nil}, result[0])
	assert.Equal(t, "grace", result[1]["name"])
	assert.Equal(t, "\x01", result[1]["avatar"])
}

func TestScanRows_Empty(t *testing.T) {
	rows := &sliceRows{cols: []string{"id"}}

	result, err := ScanRows(rows)
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestScanRows_Errors(t *testing.T) {
	driverErr := NewDriverError(errs.ErrKindQueryFailed, "scan", nil, ErrorInfo{"22P02", nil, "bad input"})

	t.Run("driver error kept", func(t *testing.T) {
		rows := &sliceRows{cols: []string{"id"}, data: [][]any{{1}}, scanErr: driverErr}
		_, err := ScanRows(rows)
		assert.Same(t, driverErr, err)
		assert.True(t, rows.closed)
	})

	t.Run("foreign error wrapped", func(t *testing.T) {
		rows := &sliceRows{cols: []string{"id"}, iterErr: errors.New("network blip")}
		_, err := ScanRows(rows)
		require.Error(t, err)
		assert.True(t, IsQueryFailed(err))
	})
}

func TestScanRow(t *testing.T) {
	m, err := ScanRow(sliceRow{values: []any{int64(7), []byte("x")}}, []string{"id", "v"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(7), "v": "x"}, m)

	notFound := NewDriverError(errs.ErrKindNotFound, "no rows", nil, ErrorInfo{SQLStateNoData, nil, "no rows"})
	_, err = ScanRow(sliceRow{err: notFound}, []string{"id"})
	assert.True(t, IsNotFound(err))
}
