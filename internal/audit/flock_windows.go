//go:build windows

package audit

import "os"

// lockFile is a no-op on Windows; FileWriter.mu still serializes appends
// within one process.
func lockFile(_ *os.File) error   { return nil }
func unlockFile(_ *os.File) error { return nil }
