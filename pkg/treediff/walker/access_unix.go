//go:build unix

package walker

import "golang.org/x/sys/unix"

// checkAccess asks the kernel whether the process may list and traverse dir.
func checkAccess(dir string) error {
	return unix.Access(dir, unix.R_OK|unix.X_OK)
}
