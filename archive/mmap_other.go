//go:build !unix

package archive

import "os"

// mapFile reads path into memory on platforms without mmap support.
func mapFile(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}
