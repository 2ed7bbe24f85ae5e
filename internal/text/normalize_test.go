// Package text_test tests synthesis text normalization.
package text_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/book-expert/voice-orchestrator/internal/text"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	normalizer := text.NewNormalizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "em dash becomes pause",
			input: "wait—listen",
			want:  "wait, listen",
		},
		{
			name:  "en and figure dashes become hyphens",
			input: "pages 3–5 and 7‒9",
			want:  "pages 3-5 and 7-9",
		},
		{
			name:  "ellipsis character expands",
			input: "well…",
			want:  "well...",
		},
		{
			name:  "control characters are stripped",
			input: "one\ttwo\r\nthree",
			want:  "one two three",
		},
		{
			name:  "whitespace runs collapse",
			input: "  spaced    out \n text  ",
			want:  "spaced out text",
		},
		{
			name:  "whitespace only becomes empty",
			input: " \t \n ",
			want:  "",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.want, normalizer.Normalize(testCase.input))
		})
	}
}
