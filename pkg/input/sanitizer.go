package input

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize is 4KB (conservative default for a chat utterance)
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize is the environment variable to override the default
	EnvMaxInputSize = "RELAY_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
	ErrEmptyInput    = errors.New("input is empty")
)

// Sanitize cleans an utterance by enforcing size limits, validating UTF-8,
// stripping control characters and trimming surrounding whitespace.
// Blank input is rejected with ErrEmptyInput.
func Sanitize(in string) (string, error) {
	limit := MaxInputSize()
	if len(in) > limit {
		// Reject rather than truncate: a truncated utterance may classify differently.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(in), limit)
	}

	if !utf8.ValidString(in) {
		return "", ErrInvalidUTF8
	}

	out := in
	if hasUnsafeControl(in) {
		var b strings.Builder
		b.Grow(len(in))
		for _, r := range in {
			if !unicode.IsControl(r) || isSafeControl(r) {
				b.WriteRune(r)
			}
		}
		out = b.String()
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyInput
	}
	return out, nil
}

func hasUnsafeControl(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) && !isSafeControl(r) {
			return true
		}
	}
	return false
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

// MaxInputSize returns the effective size limit in bytes.
func MaxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
