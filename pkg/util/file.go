package util

import (
	"os"
	"strings"
)

// ReadTrimmedFile reads a small secret file such as a password file and strips
// surrounding whitespace, including the trailing newline most editors add.
func ReadTrimmedFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
