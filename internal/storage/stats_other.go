//go:build !unix

package storage

import "errors"

func freeBytes(string) (uint64, error) {
	return 0, errors.New("free space reporting unsupported on this platform")
}
