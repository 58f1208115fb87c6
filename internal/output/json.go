package output

import (
	"encoding/json"
	"io"

	"github.com/fosspulse/fosspulse/internal/report"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Pretty bool
}

// Format outputs the full report as JSON
func (f *JSONFormatter) Format(rep *report.Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if f.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(rep)
}

// FormatSummary outputs the per-role rollup as JSON
func (f *JSONFormatter) FormatSummary(summary report.Summary, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if f.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(summary)
}
