// Package emitter materializes directories and files on disk.
package emitter

import (
	"errors"
	"fmt"
	"os"

	"github.com/adnsv/go-utils/fs"
	"github.com/sirupsen/logrus"
)

const (
	DirPerm  os.FileMode = 0755
	FilePerm os.FileMode = 0644
)

// ErrEmptyPath is returned when an operation receives an empty path.
var ErrEmptyPath = errors.New("empty path")

// Mode controls what WriteFile does when the target already exists.
type Mode string

const (
	ModeOverwrite Mode = "overwrite"
	ModeSkip      Mode = "skip"
	ModeIfChanged Mode = "if-changed"
)

// ParseMode converts a flag or config value into a Mode. The empty string
// selects ModeOverwrite.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeOverwrite:
		return ModeOverwrite, nil
	case ModeSkip, ModeIfChanged:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown write mode %q (want overwrite, skip or if-changed)", s)
}

// Outcome reports what WriteFile did with a single file.
type Outcome string

const (
	Written   Outcome = "written"
	Skipped   Outcome = "skipped"
	Unchanged Outcome = "unchanged"
	Planned   Outcome = "planned"
)

// Emitter creates directories and writes files. The zero value overwrites
// existing files and logs to the logrus standard logger.
type Emitter struct {
	Mode   Mode
	DryRun bool
	Log    logrus.FieldLogger
}

func (e *Emitter) log() logrus.FieldLogger {
	if e.Log == nil {
		return logrus.StandardLogger()
	}
	return e.Log
}

// EnsureDirectory creates path and any missing parents. It is a no-op when
// the directory already exists.
func (e *Emitter) EnsureDirectory(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if e.DryRun {
		e.log().WithField("path", path).Info("mkdir (dry run)")
		return nil
	}
	e.log().WithField("path", path).Info("mkdir")
	if err := os.MkdirAll(path, DirPerm); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// WriteFile writes content to path with FilePerm. The parent directory must
// already exist.
func (e *Emitter) WriteFile(path, content string) (Outcome, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	entry := e.log().WithField("path", path)

	if e.DryRun {
		entry.Info("write_file (dry run)")
		return Planned, nil
	}

	switch e.Mode {
	case ModeSkip:
		if fs.FileExists(path) {
			entry.Info("skip")
			return Skipped, nil
		}
	case ModeIfChanged:
		if fs.CheckFileHasContent(path, []byte(content)) {
			entry.Debug("unchanged")
			return Unchanged, nil
		}
	}

	entry.Info("write_file")
	if err := os.WriteFile(path, []byte(content), FilePerm); err != nil {
		return "", fmt.Errorf("write_file %s: %w", path, err)
	}
	return Written, nil
}
