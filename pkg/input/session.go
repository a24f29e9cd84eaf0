package input

import (
	"errors"
	"fmt"
)

// MaxSessionIDLength bounds session ids accepted from callers.
const MaxSessionIDLength = 128

var ErrInvalidSessionID = errors.New("invalid session id")

// ValidateSessionID rejects empty ids, ids longer than MaxSessionIDLength and
// ids with characters outside [A-Za-z0-9._:@-].
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSessionID)
	}
	if len(id) > MaxSessionIDLength {
		return fmt.Errorf("%w: size=%d limit=%d", ErrInvalidSessionID, len(id), MaxSessionIDLength)
	}
	for i := 0; i < len(id); i++ {
		if !sessionIDByte(id[i]) {
			return fmt.Errorf("%w: byte %q at offset %d", ErrInvalidSessionID, id[i], i)
		}
	}
	return nil
}

func sessionIDByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '.', '_', ':', '@', '-':
		return true
	}
	return false
}
