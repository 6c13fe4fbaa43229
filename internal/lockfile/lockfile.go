// Package lockfile implements the single-writer advisory lock used to
// guard an evidence package against concurrent opens, as described in
// spec.md 4.3 and 6.
//
// Grounded on directory/directory_dest.go's O_EXCL-create-then-rename
// idiom for exclusive temp files, generalized here to "fail outright if it
// already exists" rather than "always pick a fresh unique name": exactly
// the distinction between a disposable temp file and a durable lock.
package lockfile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/evidenceangel/evidenceangel-go/pkg/evperrors"
)

// Lock holds an acquired lock file. The zero value is not valid; obtain one
// via Acquire.
type Lock struct {
	path string
}

// PathFor returns the lock file path for a package at packagePath, per
// spec.md 6: "<dir>/.~<basename>".
func PathFor(packagePath string) string {
	dir := filepath.Dir(packagePath)
	base := filepath.Base(packagePath)
	return filepath.Join(dir, ".~"+base)
}

// Acquire creates the lock file for packagePath, writing the current
// process ID as decimal ASCII. If the lock file already exists (any
// content at all counts as locked — liveness is never probed, per
// spec.md 9), Acquire returns *evperrors.Locked without touching the file.
func Acquire(packagePath string) (*Lock, error) {
	path := PathFor(packagePath)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			pid, readErr := readPID(path)
			if readErr != nil {
				// Any non-empty content locks, per spec.md 9; a lock file
				// whose content isn't even a parseable PID still locks,
				// it just can't report one.
				return nil, &evperrors.Locked{PID: ""}
			}
			return nil, &evperrors.Locked{PID: pid}
		}
		return nil, errors.Wrap(err, "lockfile: create")
	}
	defer f.Close()

	if _, err := f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		os.Remove(path)
		return nil, errors.Wrap(err, "lockfile: write pid")
	}
	logrus.Debugf("lockfile: acquired %s (pid %d)", path, os.Getpid())
	return &Lock{path: path}, nil
}

func readPID(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", errors.New("lockfile: empty content")
	}
	if _, err := strconv.Atoi(s); err != nil {
		return "", err
	}
	return s, nil
}

// Release removes the lock file. It is idempotent: releasing an
// already-released lock is not an error.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "lockfile: release")
	}
	logrus.Debugf("lockfile: released %s", l.path)
	return nil
}

// ForceUnlock removes the lock file for packagePath unconditionally,
// regardless of its content or whether the owning process is still alive.
// Exposed as an explicit, named escape hatch per spec.md 9: "surface a
// user-facing override path rather than guessing."
func ForceUnlock(packagePath string) error {
	path := PathFor(packagePath)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "lockfile: force unlock")
	}
	logrus.Warnf("lockfile: force-unlocked %s", path)
	return nil
}
