package api

type ColumnSchema struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	Default    string `json:"default,omitempty"`
	PrimaryKey bool   `json:"primary_key"`
}

type ForeignKey struct {
	Column    string `json:"column"`
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
}

type TableSchema struct {
	Name        string         `json:"name"`
	Columns     []ColumnSchema `json:"columns"`
	ForeignKeys []ForeignKey   `json:"foreign_keys,omitempty"`
}

type SchemaResponse struct {
	Tables []TableSchema `json:"tables"`
}

type TableInfo struct {
	Name        string `json:"name"`
	RowCount    int64  `json:"row_count"`
	ColumnCount int    `json:"column_count"`
}

type GetTablesResponse struct {
	Tables []TableInfo `json:"tables"`
}

type TableStats struct {
	Name        string   `json:"name"`
	RowCount    int64    `json:"row_count"`
	Columns     []string `json:"columns"`
	ColumnCount int      `json:"column_count"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

type GetExamplesResponse struct {
	Questions []string `json:"questions"`
}

type SampleParams struct {
	Limit int `schema:"limit"`
}
