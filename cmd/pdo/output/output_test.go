package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinter_Messages(t *testing.T) {
	buf := &bytes.Buffer{}
	p := New(buf)

	p.Success("connected to %s", "main")
	p.Error("failed: %d", 3)
	p.Bullet("pgsql")

	out := buf.String()
	assert.Contains(t, out, "connected to main")
	assert.Contains(t, out, "failed: 3")
	assert.Contains(t, out, "pgsql")
}

func TestPrinter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, New(buf).JSON(map[string]any{"drivers": []string{"sqlite"}}))
	assert.JSONEq(t, `{"drivers":["sqlite"]}`, buf.String())
}

func TestPrinter_Table(t *testing.T) {
	buf := &bytes.Buffer{}
	err := New(buf).Table([]string{"id", "email"}, [][]string{
		{"1", "a@example.com"},
		{"10", "b@example.com"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Index(lines[1], "a@"), strings.Index(lines[2], "b@"))
}

func TestCell(t *testing.T) {
	assert.Contains(t, Cell(nil), "NULL")
	assert.Equal(t, "abc", Cell([]byte("abc")))
	assert.Equal(t, "42", Cell(int64(42)))
	assert.Equal(t, "true", Cell(true))
}
