package export

import "fmt"

// Column describes one exported field.
type Column struct {
	Key   string
	Label string
	// Numeric columns are right aligned in PDF output.
	Numeric bool
}

// Table is the renderer-neutral shape of an export.
type Table struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
	// Footer holds optional summary values keyed by column key.
	Footer map[string]string
}

// Renderer turns a table into bytes of a given content type.
type Renderer interface {
	Render(Table) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the renderer for "csv" or "pdf".
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "csv":
		return NewCSVRenderer(), nil
	case "pdf":
		return NewPDFRenderer(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func (t Table) labels() []string {
	out := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = col.Label
		if out[i] == "" {
			out[i] = col.Key
		}
	}
	return out
}

func (t Table) record(row map[string]string) []string {
	out := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = row[col.Key]
	}
	return out
}
