package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidenceangel/evidenceangel-go/pkg/evperrors"
)

func TestAcquireThenReleaseAllowsReacquire(t *testing.T) {
	pkg := filepath.Join(t.TempDir(), "demo.evp")

	lock, err := Acquire(pkg)
	require.NoError(t, err)

	require.NoError(t, lock.Release())

	lock2, err := Acquire(pkg)
	require.NoError(t, err)
	require.NoError(t, lock2.Release())
}

func TestAcquireTwiceFailsLocked(t *testing.T) {
	pkg := filepath.Join(t.TempDir(), "demo.evp")

	lock, err := Acquire(pkg)
	require.NoError(t, err)
	defer lock.Release()

	_, err = Acquire(pkg)
	require.Error(t, err)

	var locked *evperrors.Locked
	require.ErrorAs(t, err, &locked)
}

func TestPresentLockFileWithArbitraryPIDReportsIt(t *testing.T) {
	pkg := filepath.Join(t.TempDir(), "demo.evp")
	require.NoError(t, os.WriteFile(PathFor(pkg), []byte("12345"), 0o644))

	_, err := Acquire(pkg)
	require.Error(t, err)

	var locked *evperrors.Locked
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, "12345", locked.PID)
}

func TestForceUnlockRemovesStaleLock(t *testing.T) {
	pkg := filepath.Join(t.TempDir(), "demo.evp")
	require.NoError(t, os.WriteFile(PathFor(pkg), []byte("99999"), 0o644))

	require.NoError(t, ForceUnlock(pkg))

	lock, err := Acquire(pkg)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}
