package session_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/pyperf/pkg/session"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name   string
		target *session.Target
	}{
		{"standalone", standalone("app.py")},
		{
			name: "standalone with interpreter id",
			target: session.NewStandaloneTarget(session.StandaloneTarget{
				Interpreter:      &session.InterpreterRef{ID: "py3", Version: "3.11"},
				WorkingDirectory: "",
				Script:           "main.py",
			}),
		},
		{"project", session.NewProjectTarget(uuid.MustParse("0e4c1d0a-8f5b-4f4e-9b1a-7c9d2a3b4c5d"), "Web")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.target.Reports().Add(&session.Report{Filename: "b.vsp"})
			tt.target.Reports().Add(&session.Report{Filename: "a.vsp"})

			var buf bytes.Buffer
			require.NoError(t, session.Encode(&buf, tt.target))

			got, err := session.Decode(&buf)
			require.NoError(t, err)
			require.True(t, tt.target.Equal(got))
			require.Equal(t, reportNames(tt.target), reportNames(got))
		})
	}
}

func reportNames(t *session.Target) []string {
	var names []string
	for _, r := range t.ReportList() {
		names = append(names, r.Filename)
	}
	return names
}

func TestDecode_Document(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8"?>
<ProfilingTarget>
  <StandaloneTarget>
    <InterpreterPath>C:\Python27\python.exe</InterpreterPath>
    <WorkingDirectory>C:\src</WorkingDirectory>
    <Script>C:\src\app.py</Script>
    <Arguments>-v</Arguments>
  </StandaloneTarget>
  <Reports>
    <Report><Filename>C:\tmp\app_20240101.vsp</Filename></Report>
  </Reports>
</ProfilingTarget>`

	target, err := session.Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Nil(t, target.Project)
	require.Equal(t, `C:\src\app.py`, target.Standalone.Script)
	require.Equal(t, "-v", target.Standalone.Arguments)

	reports := target.ReportList()
	require.Len(t, reports, 1)
	require.Equal(t, session.StartingReportID, reports[0].ID)
}

func TestDecode_InvalidTarget(t *testing.T) {
	_, err := session.Decode(strings.NewReader(`<ProfilingTarget></ProfilingTarget>`))
	require.ErrorIs(t, err, session.ErrNoTarget)

	_, err = session.Decode(strings.NewReader(`not xml`))
	require.Error(t, err)
}

func TestWriteReadTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s"+session.Ext)
	target := standalone("app.py")

	require.NoError(t, session.WriteTarget(path, target))
	got, err := session.ReadTarget(path)
	require.NoError(t, err)
	require.True(t, target.Equal(got))

	// No temporary files are left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestReadTarget_Missing(t *testing.T) {
	_, err := session.ReadTarget(filepath.Join(t.TempDir(), "missing"+session.Ext))

	var ioErr *session.IOError
	require.ErrorAs(t, err, &ioErr)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteTarget_MissingDir(t *testing.T) {
	err := session.WriteTarget(filepath.Join(t.TempDir(), "nope", "s"+session.Ext), standalone("a.py"))

	var ioErr *session.IOError
	require.ErrorAs(t, err, &ioErr)
	require.Equal(t, "save", ioErr.Op)
}
