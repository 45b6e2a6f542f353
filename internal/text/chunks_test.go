package text

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mgoltzsche/readaloud/internal/model"
)

func TestSplit(t *testing.T) {
	for _, tc := range []struct {
		name     string
		input    string
		maxLen   int
		expected []string
	}{
		{
			name:     "empty",
			input:    "",
			maxLen:   10,
			expected: []string{},
		},
		{
			name:     "whitespace",
			input:    " \n\t ",
			maxLen:   10,
			expected: []string{},
		},
		{
			name:     "single word",
			input:    "word",
			maxLen:   10,
			expected: []string{"word"},
		},
		{
			name:     "one word per chunk",
			input:    "a b c d",
			maxLen:   1,
			expected: []string{"a", "b", "c", "d"},
		},
		{
			name:     "packs words up to the limit",
			input:    "aa bb cc dd",
			maxLen:   5,
			expected: []string{"aa bb", "cc dd"},
		},
		{
			name:     "exact fit",
			input:    "abc def",
			maxLen:   7,
			expected: []string{"abc def"},
		},
		{
			name:     "normalizes whitespace",
			input:    "  one\ttwo\n\nthree   four ",
			maxLen:   100,
			expected: []string{"one two three four"},
		},
		{
			name:     "oversized word forms its own chunk",
			input:    "a verylongword b",
			maxLen:   4,
			expected: []string{"a", "verylongword", "b"},
		},
		{
			name:     "oversized first word",
			input:    "verylongword a b",
			maxLen:   3,
			expected: []string{"verylongword", "a b"},
		},
		{
			name:     "non-positive limit is treated as 1",
			input:    "a b",
			maxLen:   0,
			expected: []string{"a", "b"},
		},
		{
			name:     "multi-byte runes count as bytes",
			input:    "äö ü",
			maxLen:   4,
			expected: []string{"äö", "ü"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			chunks := Split(tc.input, tc.maxLen)

			require.Equal(t, tc.expected, chunkTexts(chunks))

			for i, c := range chunks {
				require.Equal(t, i, c.Index, "chunk index")
			}
		})
	}
}

func TestSplitReconstructsNormalizedInput(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	alphabet := []rune("abcdefghijklmnopqrstuvwxyzäöü  \n\t")

	for i := 0; i < 200; i++ {
		runes := make([]rune, rnd.Intn(300))
		for j := range runes {
			runes[j] = alphabet[rnd.Intn(len(alphabet))]
		}

		input := string(runes)
		maxLen := rnd.Intn(20) + 1
		chunks := Split(input, maxLen)

		require.Equal(t, strings.Join(strings.Fields(input), " "), strings.Join(chunkTexts(chunks), " "), "reconstructed input %q", input)

		for _, c := range chunks {
			require.NotEmpty(t, c.Text, "chunk text")

			if len(c.Text) > maxLen {
				require.NotContains(t, c.Text, " ", "oversized chunk %q must be a single word", c.Text)
			}
		}
	}
}

func chunkTexts(chunks []model.Chunk) []string {
	texts := make([]string, len(chunks))

	for i, c := range chunks {
		texts[i] = c.Text
	}

	return texts
}
