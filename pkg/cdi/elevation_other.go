//go:build !windows

package cdi

// IsElevated always returns true; elevation is a Windows concept
func IsElevated() bool {
	return true
}
