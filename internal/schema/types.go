package schema

// ColumnInfo describes a single column in a table
type ColumnInfo struct {
	Name       string  `json:"name"`
	DataType   string  `json:"data_type"` // as reported by the engine: text, int4, varchar, INTEGER, etc.
	Nullable   bool    `json:"nullable"`
	PrimaryKey bool    `json:"primary_key"`
	Default    *string `json:"default"`    // nil if no default
	MaxLength  *int64  `json:"max_length"` // nil for non-char types and on sqlite
}

// ForeignKey describes a reference from a column of the inspected table
type ForeignKey struct {
	Name      string `json:"name"`
	Column    string `json:"column"`
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
}

// TableInfo describes a table, its columns and outgoing foreign keys
type TableInfo struct {
	Name        string       `json:"name"`
	Columns     []ColumnInfo `json:"columns"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
}
