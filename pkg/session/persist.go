package session

import (
	"encoding/xml"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Ext is the extension of session files.
const Ext = ".pyperf"

type targetDoc struct {
	XMLName    xml.Name       `xml:"ProfilingTarget"`
	Project    *projectDoc    `xml:"ProjectTarget,omitempty"`
	Standalone *standaloneDoc `xml:"StandaloneTarget,omitempty"`
	Reports    *reportsDoc    `xml:"Reports,omitempty"`
}

type projectDoc struct {
	TargetProject uuid.UUID `xml:"TargetProject"`
	FriendlyName  string    `xml:"FriendlyName,omitempty"`
}

type interpreterDoc struct {
	ID      string `xml:"Id"`
	Version string `xml:"Version,omitempty"`
}

type standaloneDoc struct {
	PythonInterpreter *interpreterDoc `xml:"PythonInterpreter,omitempty"`
	InterpreterPath   string          `xml:"InterpreterPath,omitempty"`
	WorkingDirectory  string          `xml:"WorkingDirectory"`
	Script            string          `xml:"Script"`
	Arguments         string          `xml:"Arguments"`
}

type reportsDoc struct {
	Report []reportDoc `xml:"Report"`
}

type reportDoc struct {
	Filename string `xml:"Filename"`
}

func toDoc(t *Target) *targetDoc {
	doc := new(targetDoc)
	if t.Project != nil {
		doc.Project = &projectDoc{
			TargetProject: t.Project.ProjectGUID,
			FriendlyName:  t.Project.FriendlyName,
		}
	}
	if s := t.Standalone; s != nil {
		doc.Standalone = &standaloneDoc{
			InterpreterPath:  s.InterpreterPath,
			WorkingDirectory: s.WorkingDirectory,
			Script:           s.Script,
			Arguments:        s.Arguments,
		}
		if s.Interpreter != nil {
			doc.Standalone.PythonInterpreter = &interpreterDoc{ID: s.Interpreter.ID, Version: s.Interpreter.Version}
		}
	}
	if t.reports != nil && t.reports.Len() > 0 {
		doc.Reports = new(reportsDoc)
		for _, r := range t.reports.Enumerate() {
			doc.Reports.Report = append(doc.Reports.Report, reportDoc{Filename: r.Filename})
		}
	}

	return doc
}

func fromDoc(doc *targetDoc) *Target {
	t := new(Target)
	if doc.Project != nil {
		t.Project = &ProjectTarget{
			ProjectGUID:  doc.Project.TargetProject,
			FriendlyName: doc.Project.FriendlyName,
		}
	}
	if s := doc.Standalone; s != nil {
		t.Standalone = &StandaloneTarget{
			InterpreterPath:  s.InterpreterPath,
			WorkingDirectory: s.WorkingDirectory,
			Script:           s.Script,
			Arguments:        s.Arguments,
		}
		if s.PythonInterpreter != nil {
			t.Standalone.Interpreter = &InterpreterRef{ID: s.PythonInterpreter.ID, Version: s.PythonInterpreter.Version}
		}
	}
	if doc.Reports != nil {
		for _, r := range doc.Reports.Report {
			t.Reports().Add(&Report{Filename: r.Filename})
		}
	}

	return t
}

// Encode writes t, reports included, as a session document.
func Encode(w io.Writer, t *Target) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(toDoc(t)); err != nil {
		return errors.Wrap(err, "failed to encode session document")
	}

	return enc.Close()
}

// Decode reads a session document and validates the target it holds.
func Decode(r io.Reader) (*Target, error) {
	doc := new(targetDoc)
	if err := xml.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode session document")
	}
	t := fromDoc(doc)
	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// WriteTarget saves t to path. The file is replaced atomically, so a
// failed write leaves the previous content in place.
func WriteTarget(path string, t *Target) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &IOError{Op: "save", Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, t); err != nil {
		tmp.Close()
		return &IOError{Op: "save", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "save", Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &IOError{Op: "save", Path: path, Err: err}
	}

	return nil
}

// ReadTarget loads the target stored at path.
func ReadTarget(path string) (*Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "load", Path: path, Err: err}
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", path)
	}

	return t, nil
}
