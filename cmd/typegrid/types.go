package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLICompileSummary describes one compile run.
type CLICompileSummary struct {
	CompilationID int64           `json:"compilation_id,omitempty"`
	Sheet         string          `json:"sheet"`
	Description   string          `json:"description"`
	Version       string          `json:"version"`
	NodeCount     int             `json:"node_count"`
	Pages         []CLIPage       `json:"pages"`
	Diagnostics   []CLIDiagnostic `json:"diagnostics,omitempty"`
	Output        string          `json:"output,omitempty"`
}

// CLIPage is a JSON-friendly page summary.
type CLIPage struct {
	Name        string `json:"name"`
	ColumnCount int    `json:"column_count"`
}

// CLIColumn is a JSON-friendly page column.
type CLIColumn struct {
	TagName     string   `json:"tag_name"`
	DataType    string   `json:"data_type"`
	Description string   `json:"description"`
	Labels      []string `json:"labels,omitempty"`
}

// CLIDiagnostic is a message reported by a hook.
type CLIDiagnostic struct {
	Hook    string `json:"hook"`
	Message string `json:"message"`
}
