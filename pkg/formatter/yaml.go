package formatter

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// FormatList writes kind, count and data keys.
func (f *YAMLFormatter) FormatList(w io.Writer, v View, records []map[string]any) error {
	return f.encode(w, map[string]any{
		"kind":  v.Kind,
		"count": len(records),
		"data":  records,
	})
}

// FormatRecord writes kind and data keys.
func (f *YAMLFormatter) FormatRecord(w io.Writer, v View, record map[string]any) error {
	return f.encode(w, map[string]any{
		"kind": v.Kind,
		"data": record,
	})
}

func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}
