package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
	"unicode"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct {
	// MaxWidth truncates long cell values in lists (0 = no limit).
	MaxWidth int
}

// NewTableFormatter creates a table formatter that truncates list cells at 40 characters.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{MaxWidth: 40}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// FormatList formats records as a table with an upper-case header row.
// An empty list prints "No <kind> found.".
func (f *TableFormatter) FormatList(w io.Writer, v View, records []map[string]any) error {
	if len(records) == 0 {
		kind := v.Kind
		if kind == "" {
			kind = "records"
		}
		fmt.Fprintf(w, "No %s found.\n", kind)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	headers := make([]string, len(v.Columns))
	for i, col := range v.Columns {
		headers[i] = strings.ToUpper(col)
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, record := range records {
		values := make([]string, len(v.Columns))
		for i, col := range v.Columns {
			values[i] = formatValue(record[col], f.MaxWidth)
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}

	return tw.Flush()
}

// FormatRecord formats a single record as label: value pairs.
func (f *TableFormatter) FormatRecord(w io.Writer, v View, record map[string]any) error {
	if record == nil {
		fmt.Fprintln(w, "Record not found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, col := range v.Columns {
		val, ok := record[col]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s:\t%s\n", formatLabel(col), formatValue(val, 0))
	}
	return tw.Flush()
}

// formatLabel turns camelCase or snake_case keys into "Title case" labels.
func formatLabel(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_':
			b.WriteRune(' ')
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteRune(' ')
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// formatValue formats a value for display.
func formatValue(val any, maxWidth int) string {
	if val == nil {
		return "-"
	}

	var str string
	switch v := val.(type) {
	case string:
		str = v
		if str == "" {
			str = "-"
		}
	case bool:
		if v {
			str = "yes"
		} else {
			str = "no"
		}
	case int:
		str = strconv.Itoa(v)
	case int64:
		str = strconv.FormatInt(v, 10)
	case float64:
		if v == float64(int64(v)) {
			str = strconv.FormatInt(int64(v), 10)
		} else {
			str = strconv.FormatFloat(v, 'f', 2, 64)
		}
	case time.Time:
		if v.IsZero() {
			return "-"
		}
		str = v.UTC().Format("2006-01-02 15:04:05")
	default:
		b, _ := json.Marshal(v)
		str = string(b)
	}

	if maxWidth > 3 && len(str) > maxWidth {
		str = str[:maxWidth-3] + "..."
	}
	return str
}
