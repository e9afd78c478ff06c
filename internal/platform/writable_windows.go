//go:build windows

package platform

import "os"

// IsWritable reports whether the current user may create entries in dir.
// Windows ACLs are not reflected in mode bits, so a probe file is created.
func IsWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".claudekit-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
