package daemon

import (
	"fmt"
	"os"
	"path/filepath"
)

// socketPrefix names the socket files this daemon creates under the
// system temp directory.
const socketPrefix = "memoryd"

// djb2 hashes s with the classic shift-and-add mix. The 32-bit value is
// stable across runs and platforms, so every process derives the same
// socket path for the same store.
func djb2(s string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(s); i++ {
		h = h*33 + uint32(s[i])
	}
	return h
}

// SocketPath derives the daemon socket path for a store: a fixed prefix
// plus the djb2 hash of the canonicalized store path. One store maps to
// one socket; two paths naming the same store (via symlinks or relative
// segments) map to the same socket.
func SocketPath(storePath string) string {
	canonical, err := filepath.Abs(storePath)
	if err == nil {
		if resolved, rerr := filepath.EvalSymlinks(filepath.Dir(canonical)); rerr == nil {
			canonical = filepath.Join(resolved, filepath.Base(canonical))
		}
	} else {
		canonical = storePath
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("%s-%08x.sock", socketPrefix, djb2(canonical)))
}
