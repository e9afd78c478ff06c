package installer

import (
	"fmt"
	"os"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/claudekit-labs/claudekit/internal/platform"
	"github.com/google/uuid"
)

// backup records a file renamed aside before being replaced.
type backup struct {
	original string
	path     string
}

// transaction records every side effect of one execution so it can be
// undone. It is discarded when execution ends.
type transaction struct {
	id          string
	files       []string // created or replaced files, removable on rollback
	overwritten []string // replaced without a backup; not restorable
	dirs        []string // directories this run created, parents first
	backups     []backup
	completed   int
}

func newTransaction() *transaction {
	return &transaction{id: uuid.NewString()}
}

// recordFile marks path as written by this run. Files replaced without a
// backup stay in overwritten only, so rollback leaves them alone.
func (tx *transaction) recordFile(path string) {
	if !slices.Contains(tx.files, path) && !slices.Contains(tx.overwritten, path) {
		tx.files = append(tx.files, path)
	}
}

func (tx *transaction) backupFiles() []string {
	out := make([]string, 0, len(tx.backups))
	for _, b := range tx.backups {
		out = append(out, b.path)
	}
	return out
}

// modified returns every file the transaction wrote.
func (tx *transaction) modified() []string {
	out := slices.Clone(tx.files)
	for _, f := range tx.overwritten {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// rollback removes created files in reverse order, restores backups in
// reverse order, and removes created directories that are now empty. It
// returns the paths it restored or removed and every error it hit; it never
// stops early.
func (tx *transaction) rollback(logger *log.Logger) ([]string, []error) {
	var (
		touched []string
		errs    []error
	)

	for _, f := range slices.Backward(tx.files) {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("removing %s: %w", f, err))
			continue
		}
		touched = append(touched, f)
		logger.Debug("rolled back file", "tx", tx.id, "path", f)
	}

	for _, b := range slices.Backward(tx.backups) {
		if err := os.Rename(b.path, b.original); err != nil {
			errs = append(errs, fmt.Errorf("restoring %s from %s: %w", b.original, b.path, err))
			continue
		}
		if !slices.Contains(touched, b.original) {
			touched = append(touched, b.original)
		}
		logger.Debug("restored backup", "tx", tx.id, "path", b.original)
	}

	for _, d := range slices.Backward(tx.dirs) {
		removed, err := platform.RemoveIfEmpty(d)
		if err != nil {
			errs = append(errs, fmt.Errorf("removing directory %s: %w", d, err))
			continue
		}
		if removed {
			touched = append(touched, d)
			logger.Debug("removed directory", "tx", tx.id, "path", d)
		}
	}

	for _, f := range tx.overwritten {
		logger.Warn("file was replaced without a backup and cannot be restored", "tx", tx.id, "path", f)
	}

	return touched, errs
}
