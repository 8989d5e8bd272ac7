package supervisor

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/maxgio92/pyperf/pkg/render"
)

const (
	collectAnalysis = "hotspots"
	csvExt          = ".csv"
)

// BatchCollector runs the target through a collector, then asks the
// collector for a CSV report of the result directory and renders it.
type BatchCollector struct {
	*process
}

func NewBatchCollector(locator *Locator, opts ...Option) *BatchCollector {
	return &BatchCollector{process: newProcess("batch", locator, opts...)}
}

func collectArgs(resultDir string, l Launch) []string {
	args := []string{"-collect", collectAnalysis, "-result-dir", resultDir, "--", l.Exe}
	return append(args, l.Args...)
}

func reportArgs(resultDir, csvPath string) []string {
	return []string{
		"-report", collectAnalysis,
		"-result-dir", resultDir,
		"-format", "csv",
		"-csv-delimiter", "comma",
		"-report-output", csvPath,
	}
}

// CSVPath is where the report of resultDir is written.
func CSVPath(resultDir string) string {
	return filepath.Join(resultDir, filepath.Base(resultDir)+csvExt)
}

func (b *BatchCollector) Start(_ context.Context, l Launch) error {
	tool, err := b.begin(l)
	if err != nil {
		return err
	}
	if l.Output == "" {
		b.setState(StateIdle)
		return &LaunchFailedError{Step: "start collector", Err: errors.New("no result directory")}
	}
	if err := os.MkdirAll(filepath.Dir(l.Output), 0o755); err != nil {
		b.setState(StateIdle)
		return &LaunchFailedError{Step: "create result directory", Err: err}
	}

	collector := b.command(l, tool, collectArgs(l.Output, l)...)
	if err := b.startTarget(collector, func(exitCode int, _ error) Result {
		return b.finalize(tool, l.Output, exitCode)
	}); err != nil {
		b.setState(StateIdle)
		return err
	}

	return nil
}

// finalize generates the report. The collector is waited for
// synchronously: it is a bounded batch step.
func (b *BatchCollector) finalize(tool, resultDir string, exitCode int) Result {
	result := Result{ExitCode: exitCode}
	csvPath := CSVPath(resultDir)

	b.logger.Debug().Str("result-dir", resultDir).Msg("generating report")
	stdout, stderr, code, err := runTool(context.Background(), tool, reportArgs(resultDir, csvPath)...)
	if err != nil {
		result.Err = &LaunchFailedError{Step: "run report generation", ExitCode: code, Err: err}
		return result
	}
	if code != 0 {
		result.Err = &ReportGenerationError{ExitCode: code, Stdout: stdout, Stderr: stderr}
		return result
	}

	htmlPath, err := render.RenderCsvAsHtml(csvPath)
	if err != nil {
		result.Err = err
		return result
	}
	result.Report = htmlPath

	return result
}

var _ Supervisor = (*BatchCollector)(nil)
