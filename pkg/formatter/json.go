package formatter

import (
	"encoding/json"
	"io"
)

// JSONFormatter formats output as indented JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// FormatList writes {"kind", "count", "data"}.
func (f *JSONFormatter) FormatList(w io.Writer, v View, records []map[string]any) error {
	return f.encode(w, map[string]any{
		"kind":  v.Kind,
		"count": len(records),
		"data":  records,
	})
}

// FormatRecord writes {"kind", "data"}; data is null for a missing record.
func (f *JSONFormatter) FormatRecord(w io.Writer, v View, record map[string]any) error {
	return f.encode(w, map[string]any{
		"kind": v.Kind,
		"data": record,
	})
}

func (f *JSONFormatter) encode(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
