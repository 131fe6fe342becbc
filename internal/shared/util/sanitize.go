package util

import (
	"errors"
	"path/filepath"
	"strings"
)

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// HasPDFExtension reports whether name ends in .pdf, case-insensitively.
func HasPDFExtension(name string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimSpace(name)), ".pdf")
}
