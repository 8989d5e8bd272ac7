package output_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/pyperf/internal/output"
)

func TestFprintRight(t *testing.T) {
	var buf bytes.Buffer
	output.FprintRight(&buf, 10, "abc")
	require.Equal(t, "\r       abc", buf.String())

	buf.Reset()
	output.FprintRight(&buf, 2, "abcdef")
	require.Equal(t, "\rabcdef", buf.String())
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	output.Table(&buf, []string{"id", "report"}, [][]string{
		{"2", "app_20240101.vsp"},
		{"3", "app_20240102.vsp"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "ID")
	require.Contains(t, lines[0], "REPORT")
	require.Contains(t, lines[2], "app_20240102.vsp")
}

func TestPrettyRunStatus(t *testing.T) {
	status := output.PrettyRunStatus("app", "running", 1500*time.Millisecond)
	require.Contains(t, status, "Session: app")
	require.Contains(t, status, "[running]")
	require.True(t, strings.HasSuffix(status, "1s"))
}
