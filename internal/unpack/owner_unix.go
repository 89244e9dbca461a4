//go:build unix

package unpack

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

var umaskMu sync.Mutex

// currentUmask reads the process umask. Linux reports it in
// /proc/self/status; elsewhere the only way to read it is to set it, so
// those calls are serialized.
func currentUmask() int {
	if mask, ok := procUmask("/proc/self/status"); ok {
		return mask
	}

	umaskMu.Lock()
	defer umaskMu.Unlock()
	mask := unix.Umask(0)
	unix.Umask(mask)
	return mask
}

// procUmask parses the octal "Umask:" line of a /proc status file.
func procUmask(path string) (int, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		value, ok := strings.CutPrefix(scanner.Text(), "Umask:")
		if !ok {
			continue
		}
		mask, err := strconv.ParseUint(strings.TrimSpace(value), 8, 32)
		if err != nil {
			return 0, false
		}
		return int(mask), true
	}
	return 0, false
}

// effectiveIDs returns the effective user and group of the process.
func effectiveIDs() (uid, gid int) {
	return unix.Geteuid(), unix.Getegid()
}

// lchown sets the owner of path without following symlinks.
func lchown(path string, uid, gid int) error {
	return unix.Lchown(path, uid, gid)
}
