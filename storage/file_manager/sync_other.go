//go:build !linux

package file_manager

import "os"

func syncFile(f *os.File) error {
	return f.Sync()
}
