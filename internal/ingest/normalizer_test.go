package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "collapse whitespace",
			in:   "hello   world\n\tnext   line",
			want: "hello world next line",
		},
		{
			name: "strip separator runs",
			in:   "chapter one ----- chapter two",
			want: "chapter one chapter two",
		},
		{
			name: "dotted leader lines",
			in:   "Contents........ 12",
			want: "Contents 12",
		},
		{
			name: "space before punctuation",
			in:   "ready , set , go !",
			want: "ready, set, go!",
		},
		{
			name: "missing space after sentence end",
			in:   "It stops.Then it starts.",
			want: "It stops. Then it starts.",
		},
		{
			name: "drop artifact tokens",
			in:   "press t h e red button",
			want: "press red button",
		},
		{
			name: "keep meaningful single runes",
			in:   "I saw a 5",
			want: "I saw a 5",
		},
		{
			name: "keep cjk single runes",
			in:   "press 按 now",
			want: "press 按 now",
		},
		{
			name: "empty input",
			in:   "   \n\t ",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"hello   world -- ok",
		"foo . . .",
		"Contents........ 12",
		"It stops.Then it starts.",
		"press t h e red button !",
	}
	for _, in := range inputs {
		once := Normalize(in)
		require.Equal(t, once, Normalize(once), "input %q", in)
	}
}
