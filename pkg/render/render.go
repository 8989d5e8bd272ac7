// Package render turns collector output into a self-contained report.
package render

import (
	"bufio"
	"encoding/csv"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/maxgio92/pyperf/pkg/session"
)

// HTMLExt is appended to the source file name.
const HTMLExt = ".html"

var page = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
table { border-collapse: collapse; font-family: sans-serif; font-size: 13px; }
th, td { border: 1px solid #ccc; padding: 2px 6px; }
th { background: #eee; text-align: left; }
</style>
</head>
<body>
<table>
{{- with .Header}}
<thead><tr>{{range .}}<th>{{.}}</th>{{end}}</tr></thead>
{{- end}}
<tbody>
{{- range .Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))

// Table is a parsed CSV document.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// maxLineSize bounds a single CSV line.
const maxLineSize = 1 << 20

// ReadTable parses r one line per row. Rows keep however many fields they
// have and quotes are stripped where the input is not strictly quoted. A
// malformed line never spills into the following ones.
func ReadTable(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineSize)

	t := new(Table)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		record := splitLine(line)
		if t.Header == nil {
			t.Header = record
			continue
		}
		t.Rows = append(t.Rows, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read table")
	}

	return t, nil
}

// splitLine parses a single line. An unterminated quote ends at the end
// of the line.
func splitLine(line string) []string {
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	record, err := reader.Read()
	if err != nil {
		record = strings.Split(line, ",")
	}
	for i := range record {
		record[i] = strings.Trim(record[i], `"`)
	}

	return record
}

// WriteHTML renders t as an HTML table document.
func (t *Table) WriteHTML(w io.Writer) error {
	return page.Execute(w, t)
}

// RenderCsvAsHtml renders the CSV file at csvPath beside it, returning the
// path of the HTML document.
func RenderCsvAsHtml(csvPath string) (string, error) {
	in, err := os.Open(csvPath)
	if err != nil {
		return "", &session.IOError{Op: "read", Path: csvPath, Err: err}
	}
	defer in.Close()

	table, err := ReadTable(in)
	if err != nil {
		return "", &session.IOError{Op: "read", Path: csvPath, Err: err}
	}
	table.Title = filepath.Base(csvPath)

	htmlPath := csvPath + HTMLExt
	out, err := os.Create(htmlPath)
	if err != nil {
		return "", &session.IOError{Op: "create", Path: htmlPath, Err: err}
	}
	if err := table.WriteHTML(out); err != nil {
		out.Close()
		return "", &session.IOError{Op: "write", Path: htmlPath, Err: err}
	}
	if err := out.Close(); err != nil {
		return "", &session.IOError{Op: "write", Path: htmlPath, Err: err}
	}

	return htmlPath, nil
}
