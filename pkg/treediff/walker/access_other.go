//go:build !unix

package walker

// checkAccess is a no-op where access(2) is unavailable; the directory listing
// probe in validateRoot still catches unreadable roots.
func checkAccess(string) error {
	return nil
}
