//go:build !unix

package unpack

func currentUmask() int {
	return 0o022
}

// effectiveIDs reports -1 where the platform has no numeric owners.
func effectiveIDs() (uid, gid int) {
	return -1, -1
}

func lchown(path string, uid, gid int) error {
	return nil
}
