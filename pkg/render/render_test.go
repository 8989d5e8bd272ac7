package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/pyperf/pkg/session"
)

func TestReadTable(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantHeader []string
		wantRows   [][]string
	}{
		{
			name:       "header and rows",
			input:      "Function,CPU Time\nmain,1.5\nhelper,0.25\n",
			wantHeader: []string{"Function", "CPU Time"},
			wantRows:   [][]string{{"main", "1.5"}, {"helper", "0.25"}},
		},
		{
			name:       "quoted fields",
			input:      "\"Function\",\"Module\"\n\"f, g\",\"python3.11\"\n",
			wantHeader: []string{"Function", "Module"},
			wantRows:   [][]string{{"f, g", "python3.11"}},
		},
		{
			name:       "ragged rows",
			input:      "a,b,c\n1\n1,2,3,4\n",
			wantHeader: []string{"a", "b", "c"},
			wantRows:   [][]string{{"1"}, {"1", "2", "3", "4"}},
		},
		{
			name:       "stray quotes",
			input:      "name\nsay \"hi\"\n",
			wantHeader: []string{"name"},
			wantRows:   [][]string{{`say "hi`}},
		},
		{
			name:  "empty",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ReadTable(strings.NewReader(tt.input))
			require.NoError(t, err)
			require.Equal(t, tt.wantHeader, table.Header)
			require.Equal(t, tt.wantRows, table.Rows)
		})
	}
}

func TestReadTable_UnterminatedQuoteStaysOnItsLine(t *testing.T) {
	input := "Function,CPU Time\n\"broken,1.0\nmain,2.0\r\nhelper,3.0\n"

	table, err := ReadTable(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []string{"Function", "CPU Time"}, table.Header)
	require.Len(t, table.Rows, 3)
	require.Equal(t, []string{"main", "2.0"}, table.Rows[1])
	require.Equal(t, []string{"helper", "3.0"}, table.Rows[2])
}

func TestTable_WriteHTMLEscapes(t *testing.T) {
	table := &Table{
		Title:  "report.csv",
		Header: []string{"Function"},
		Rows:   [][]string{{"<lambda>"}},
	}

	var buf bytes.Buffer
	require.NoError(t, table.WriteHTML(&buf))
	require.Contains(t, buf.String(), "<th>Function</th>")
	require.Contains(t, buf.String(), "<td>&lt;lambda&gt;</td>")
	require.Contains(t, buf.String(), "<title>report.csv</title>")
}

func TestRenderCsvAsHtml(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "hotspots.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Function,CPU Time\nmain,1.5\nragged\n"), 0644))

	htmlPath, err := RenderCsvAsHtml(csvPath)
	require.NoError(t, err)
	require.Equal(t, csvPath+".html", htmlPath)

	b, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(b), "<thead>"))
	require.Contains(t, string(b), "<td>main</td><td>1.5</td>")
	require.Contains(t, string(b), "<tr><td>ragged</td></tr>")
}

func TestRenderCsvAsHtml_Missing(t *testing.T) {
	_, err := RenderCsvAsHtml(filepath.Join(t.TempDir(), "missing.csv"))

	var ioErr *session.IOError
	require.ErrorAs(t, err, &ioErr)
	require.ErrorIs(t, err, os.ErrNotExist)
}
