//go:build windows

package cdi

import "golang.org/x/sys/windows"

// IsElevated reports whether the current process token is elevated.
// CrystalDiskInfo needs administrator rights to read SMART data.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
