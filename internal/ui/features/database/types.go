package database

// StatusResponse reports whether the warehouse answers.
type StatusResponse struct {
	Connected bool   `json:"connected"`
	Dialect   string `json:"dialect"`
	Message   string `json:"message"`
}

// SchemaResponse lists the warehouse tables and their columns.
type SchemaResponse struct {
	Dialect string      `json:"dialect"`
	Tables  []TableInfo `json:"tables"`
}

// TableInfo describes one warehouse table.
type TableInfo struct {
	Name     string       `json:"name"`
	RowCount *int64       `json:"row_count,omitempty"`
	Columns  []ColumnMeta `json:"columns"`
}

// ColumnMeta describes one column.
type ColumnMeta struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// ErrorResponse reports a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
