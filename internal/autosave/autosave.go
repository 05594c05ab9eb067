// Package autosave keeps a snapshot of the model while a run is in
// progress.
//
// The snapshot is written before a run starts and removed once the run
// reaches any terminal status: completed, cancelled or failed. A cancelled
// or failed run leaves the model untouched, so there is nothing to recover
// from it. A snapshot found at startup therefore means the previous process
// ended while a run was still going.
package autosave

import (
	"errors"
	"path/filepath"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"github.com/san-kum/episim/internal/document"
	"github.com/san-kum/episim/internal/sim"
)

const snapshotFile = "snapshot.yaml"

// Autosave owns at most one snapshot in its directory. Filesystem failures
// are logged and never returned: a run must not fail because of them.
type Autosave struct {
	fs      vfs.FileSystem
	dir     string
	enabled bool
}

func New(dir string, enabled bool, fss ...vfs.FileSystem) *Autosave {
	fs := vfs.FileSystem(osfs.OsFs)
	if len(fss) > 0 && fss[0] != nil {
		fs = fss[0]
	}
	return &Autosave{fs: fs, dir: dir, enabled: enabled}
}

func (a *Autosave) Enabled() bool { return a.enabled }

func (a *Autosave) Path() string { return filepath.Join(a.dir, snapshotFile) }

// Write replaces the snapshot with doc. It reports whether a snapshot was
// written.
func (a *Autosave) Write(doc *document.Document) bool {
	if !a.enabled {
		return false
	}
	if err := document.Save(a.Path(), doc, a.fs); err != nil {
		log.Warn("cannot write autosave {{path}}: {{error}}", "path", a.Path(), "error", err)
		return false
	}
	log.Debug("autosave written to {{path}}", "path", a.Path())
	return true
}

// Remove deletes the snapshot. A missing snapshot is fine.
func (a *Autosave) Remove() {
	err := a.fs.Remove(a.Path())
	if err != nil && !errors.Is(err, vfs.ErrNotExist) {
		log.Warn("cannot remove autosave {{path}}: {{error}}", "path", a.Path(), "error", err)
	}
}

// Finish removes the snapshot once a run has reached a terminal status,
// successful or not.
func (a *Autosave) Finish(status sim.Status) {
	if status.Terminal() {
		a.Remove()
	}
}

// Leftover returns the snapshot left behind by an unfinished run, if any.
// An unreadable snapshot is reported as absent.
func (a *Autosave) Leftover() (*document.Document, bool) {
	if _, err := a.fs.Stat(a.Path()); err != nil {
		if !errors.Is(err, vfs.ErrNotExist) {
			log.Warn("cannot inspect autosave {{path}}: {{error}}", "path", a.Path(), "error", err)
		}
		return nil, false
	}
	doc, err := document.Load(a.Path(), a.fs)
	if err != nil {
		log.Warn("ignoring unreadable autosave {{path}}: {{error}}", "path", a.Path(), "error", err)
		return nil, false
	}
	return doc, true
}

// Restore writes the leftover snapshot to path and removes it.
func (a *Autosave) Restore(path string, fss ...vfs.FileSystem) (bool, error) {
	doc, ok := a.Leftover()
	if !ok {
		return false, nil
	}
	if err := document.Save(path, doc, fss...); err != nil {
		return false, err
	}
	a.Remove()
	return true, nil
}
