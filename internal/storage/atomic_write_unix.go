//go:build !windows

package storage

import (
	"errors"
)

// atomicRenameWindows is never called off Windows.
func atomicRenameWindows(oldpath, newpath string) error {
	return errors.New("atomicRenameWindows called on non-Windows platform")
}
