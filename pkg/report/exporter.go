package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode"

	"github.com/canchaya/canchaya/pkg/format"
	"github.com/canchaya/canchaya/pkg/model"
)

// ErrPDFNotImplemented is the message carried by a PDF export result.
const ErrPDFNotImplemented = "PDF export is not implemented yet"

// Result is the outcome of one export. Unsupported formats come back with
// Success false and a human-readable Error instead of a Go error.
type Result struct {
	Success     bool   `json:"success"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Content     []byte `json:"-"`
	Error       string `json:"error,omitempty"`
}

const htmlReport = `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
</head>
<body style="font-family: Arial, sans-serif; color: #222; margin: 24px;">
<h1 style="font-size: 20px; margin-bottom: 4px;">{{.Title}}</h1>
<p style="color: #666; font-size: 12px; margin-top: 0;">Generado el {{.Generated}} · {{.Count}} registros</p>
<table style="border-collapse: collapse; width: 100%; font-size: 13px;">
<thead>
<tr>{{range .Columns}}<th style="background: #0b6e4f; color: #fff; text-align: left; padding: 6px 8px; border: 1px solid #0b6e4f;">{{.}}</th>{{end}}</tr>
</thead>
<tbody>
{{range $i, $row := .Rows}}<tr style="background: {{if even $i}}#ffffff{{else}}#f3f7f5{{end}};">{{range $row}}<td style="padding: 6px 8px; border: 1px solid #ddd;">{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</body>
</html>
`

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"even": func(i int) bool { return i%2 == 0 },
}).Parse(htmlReport))

// Exporter renders rows in the supported formats.
type Exporter struct {
	now   func() time.Time
	dates format.DateFormatter
}

// NewExporter creates an exporter. now may be nil.
func NewExporter(now func() time.Time) *Exporter {
	if now == nil {
		now = time.Now
	}
	return &Exporter{now: now, dates: format.DateFormatter{Style: format.DateLong}}
}

// Export renders rows as f.
func (e *Exporter) Export(f model.ReportFormat, title string, rows []Row) Result {
	switch f {
	case model.ReportCSV:
		content, err := encodeCSV(rows)
		if err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: true, Filename: e.filename(title, "csv"), ContentType: "text/csv; charset=utf-8", Content: content}

	case model.ReportExcel:
		content, err := encodeCSV(rows)
		if err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: true, Filename: e.filename(title, "xls"), ContentType: "application/vnd.ms-excel", Content: content}

	case model.ReportHTML:
		content, err := e.encodeHTML(title, rows)
		if err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: true, Filename: e.filename(title, "html"), ContentType: "text/html; charset=utf-8", Content: content}

	case model.ReportPDF:
		return Result{Error: ErrPDFNotImplemented}

	default:
		return Result{Error: fmt.Sprintf("unsupported report format %q", f)}
	}
}

func encodeCSV(rows []Row) ([]byte, error) {
	cols := Columns(rows)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(cols); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(cols))
	for _, r := range rows {
		for i, c := range cols {
			record[i] = r.Get(c)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Exporter) encodeHTML(title string, rows []Row) ([]byte, error) {
	cols := Columns(rows)
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = make([]string, len(cols))
		for j, c := range cols {
			cells[i][j] = r.Get(c)
		}
	}

	var buf bytes.Buffer
	err := htmlTemplate.Execute(&buf, struct {
		Title     string
		Generated string
		Count     int
		Columns   []string
		Rows      [][]string
	}{
		Title:     title,
		Generated: e.dates.Format(e.now()),
		Count:     len(rows),
		Columns:   cols,
		Rows:      cells,
	})
	if err != nil {
		return nil, fmt.Errorf("render html report: %w", err)
	}
	return buf.Bytes(), nil
}

var accentFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

func (e *Exporter) filename(title, ext string) string {
	slug := slugify(title)
	if slug == "" {
		slug = "reporte"
	}
	return fmt.Sprintf("%s-%s.%s", slug, e.now().Format("20060102-150405"), ext)
}

func slugify(s string) string {
	s = accentFolder.Replace(strings.ToLower(strings.TrimSpace(s)))
	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
