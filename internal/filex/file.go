// Package filex reads bounded amounts of data from files and streams.
package filex

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrTooLarge is returned when input exceeds the caller's limit.
var ErrTooLarge = errors.New("input too large")

// ReadLimited reads r to EOF, failing with ErrTooLarge if more than limit
// bytes are available. Partially read data is zeroed on failure.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		clear(data)
		return nil, err
	}
	if int64(len(data)) > limit {
		clear(data)
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

// ReadFile reads a regular file of at most limit bytes.
func ReadFile(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}

	return ReadLimited(f, limit)
}
