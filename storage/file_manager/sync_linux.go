//go:build linux

package file_manager

import (
	"os"

	"golang.org/x/sys/unix"
)

// syncFile 只刷数据，不等待元数据
func syncFile(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}
