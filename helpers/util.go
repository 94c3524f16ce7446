package helpers

import (
	"errors"
	"strings"
)

func GetSplitPart(target string, separate string, index int) (string, error) {
	parts := strings.Split(target, separate)
	if index >= len(parts) {
		return "", errors.New("index out of range")
	}
	return parts[index], nil
}

// TrimIDPrefix strips a fixed prefix from an element id, reporting whether
// anything was left after it
func TrimIDPrefix(id, prefix string) (string, bool) {
	if !strings.HasPrefix(id, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(id, prefix)
	return rest, rest != ""
}
