package input

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "plain", in: "open an account", want: "open an account"},
		{name: "trims", in: "  hello \n", want: "hello"},
		{name: "strips ansi escape", in: "hi\x1b[31m there", want: "hi[31m there"},
		{name: "keeps tabs inside", in: "a\tb", want: "a\tb"},
		{name: "strips null and bell", in: "a\x00b\x07c", want: "abc"},
		{name: "blank", in: "   ", wantErr: ErrEmptyInput},
		{name: "only control chars", in: "\x00\x01", wantErr: ErrEmptyInput},
		{name: "invalid utf8", in: "bad \xff byte", wantErr: ErrInvalidUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitize_SizeLimit(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "10")
	assert.Equal(t, 10, MaxInputSize())

	_, err := Sanitize(strings.Repeat("a", 11))
	assert.ErrorIs(t, err, ErrInputTooLarge)

	got, err := Sanitize(strings.Repeat("a", 10))
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestMaxInputSize_IgnoresGarbage(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "lots")
	assert.Equal(t, DefaultMaxInputSize, MaxInputSize())
}
