//go:build linux

package daemon

import (
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// peerAllowed verifies the connecting process runs as the same user as
// the daemon. Socket file permissions already restrict access to 0600;
// this closes the gap for sockets created under a group-writable temp
// directory.
func peerAllowed(conn net.Conn) bool {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return false
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return false
	}
	allowed := false
	ctrlErr := raw.Control(func(fd uintptr) {
		cred, err := unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
		if err != nil {
			return
		}
		allowed = int(cred.Uid) == os.Getuid()
	})
	return ctrlErr == nil && allowed
}
