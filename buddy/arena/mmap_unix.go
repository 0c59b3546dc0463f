//go:build unix

package arena

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Map returns a region of size bytes at base, backed by an anonymous private
// read/write mapping outside the Go heap. Close unmaps it.
func Map(base Addr, size uint64) (*Region, error) {
	if err := checkBounds(base, size); err != nil {
		return nil, err
	}
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("arena: mmap %d bytes: %w", size, err)
	}
	release := func() error {
		err := unix.Munmap(data)
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			return nil
		}
		return err
	}
	return &Region{base: base, data: data, release: release}, nil
}
