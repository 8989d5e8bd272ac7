package profile

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

const dateLayout = "20060102"

// OutputPath names the raw profiler output of a session started at now:
// <base>_<yyyyMMdd><ext> in dir, suffixed with (n) until no file or
// directory is in the way.
func OutputPath(dir, base, ext string, now time.Time) string {
	stem := base + "_" + now.Format(dateLayout)

	path := filepath.Join(dir, stem+ext)
	for n := 1; exists(path); n++ {
		path = filepath.Join(dir, fmt.Sprintf("%s(%d)%s", stem, n, ext))
	}

	return path
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Opener shows a finished report.
type Opener func(path string) error

// OpenWith returns an Opener running command with the report path as
// last argument. The command is not waited for.
func OpenWith(command string) (Opener, error) {
	words, err := shellquote.Split(command)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid open command %q", command)
	}
	if len(words) == 0 {
		return nil, ErrNoOpenCommand
	}

	return func(path string) error {
		cmd := exec.Command(words[0], append(words[1:], path)...)
		if err := cmd.Start(); err != nil {
			return errors.Wrapf(err, "failed to open %s", path)
		}
		go cmd.Wait()

		return nil
	}, nil
}

// waitReadable polls until path can be opened for reading. Profilers
// may still be flushing the file when the target exits.
func waitReadable(path string, retries int, interval time.Duration) error {
	var err error
	for i := 0; i < retries; i++ {
		var f *os.File
		if f, err = os.Open(path); err == nil {
			return f.Close()
		}
		time.Sleep(interval)
	}

	return errors.Wrapf(ErrReportNotReady, "%s: %v", path, err)
}
