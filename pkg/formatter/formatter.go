// Package formatter renders CLI output as a table, JSON or YAML.
// Records are plain maps so one command can feed any formatter.
package formatter

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

// View names the printed data and its display columns.
type View struct {
	// Kind labels the data in structured output (e.g. "usage", "reports").
	Kind string

	// Columns lists fields in display order for table output. JSON and YAML
	// output always carry every field.
	Columns []string
}

// Formatter converts records to a specific output format.
type Formatter interface {
	// Name returns the formatter name (e.g. "table", "json", "yaml").
	Name() string

	// FormatList formats a list of records.
	FormatList(w io.Writer, v View, records []map[string]any) error

	// FormatRecord formats a single record.
	FormatRecord(w io.Writer, v View, record map[string]any) error
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{formatters: make(map[string]Formatter)}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}
	r.formatters[f.Name()] = f
	return nil
}

// Get returns the formatter called name, or an error naming the choices.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	f, ok := r.formatters[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (want one of: %s)", name, strings.Join(r.List(), ", "))
	}
	return f, nil
}

// List returns registered formatter names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultRegistry holds the table, json and yaml formatters.
var DefaultRegistry = NewRegistry()

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}

func init() {
	for _, f := range []Formatter{NewTableFormatter(), NewJSONFormatter(), NewYAMLFormatter()} {
		if err := DefaultRegistry.Register(f); err != nil {
			panic(err)
		}
	}
}
