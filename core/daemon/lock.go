package daemon

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/yantra-mind/memoryd/core/apperr"
)

// fileLock holds the exclusive daemon lock next to the store, so a second
// daemon pointed at the same path fails fast instead of corrupting the
// WAL.
type fileLock struct {
	f *os.File
}

// acquireLock takes (or fails to take) the exclusive advisory lock at
// path. The lock is released by Close or by process exit.
func acquireLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, err, "open lock file %s", path)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, apperr.Wrap(apperr.KindStore, err, "store %s is locked by another daemon", path)
	}
	return &fileLock{f: f}, nil
}

// Close releases the lock and removes the lock file.
func (l *fileLock) Close() error {
	path := l.f.Name()
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	err := l.f.Close()
	_ = os.Remove(path)
	return err
}
