//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, size int) ([]byte, func() error, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, &os.PathError{Op: "mmap", Path: f.Name(), Err: err}
	}
	return data, func() error { return unix.Munmap(data) }, nil
}

func advise(data []byte, a Advice) error {
	hint := unix.MADV_NORMAL
	switch a {
	case Sequential:
		hint = unix.MADV_SEQUENTIAL
	case WillNeed:
		hint = unix.MADV_WILLNEED
	}
	return unix.Madvise(data, hint)
}
