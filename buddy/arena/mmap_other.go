//go:build !unix

package arena

// Map falls back to a Go-heap buffer when anonymous mappings are unavailable.
func Map(base Addr, size uint64) (*Region, error) {
	return New(base, size)
}
