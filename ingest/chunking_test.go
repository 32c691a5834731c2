package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyText(t *testing.T) {
	c := newChunker(5, 20)
	assert.Nil(t, c.split(""))
	assert.Nil(t, c.split("   \n\t  "))
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	c := newChunker(5, 20)
	chunks := c.split("A  short\nannouncement.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short announcement.", chunks[0])
}

func TestSplitOverlapsOnSentenceBoundary(t *testing.T) {
	c := newChunker(5, 20)
	text := "One two three four five. Six seven eight nine ten. Eleven twelve."

	chunks := c.split(text)
	require.Equal(t, []string{
		"One two three four five.",
		"One two three four five. Six seven eight nine ten.",
		"Six seven eight nine ten. Eleven twelve.",
	}, chunks)
}

func TestSplitNormalizesWhitespace(t *testing.T) {
	c := newChunker(300, 320)
	chunks := c.split("Quarterly   results\n\nwere   announced  today.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Quarterly results were announced today.", chunks[0])
}

func TestSplitCoversAllWords(t *testing.T) {
	c := newChunker(30, 40)
	var sentences []string
	for i := 0; i < 40; i++ {
		sentences = append(sentences, "The company announced new results today and investors reacted positively.")
	}
	text := strings.Join(sentences, " ")

	chunks := c.split(text)
	require.NotEmpty(t, chunks)

	total := 0
	for _, chunk := range chunks {
		total += len(strings.Fields(chunk))
	}
	// Overlap carries sentences forward, so the sum covers at least the input.
	assert.GreaterOrEqual(t, total, len(strings.Fields(text)))
}

func TestNewChunkerDefaults(t *testing.T) {
	c := newChunker(0, 0)
	assert.Equal(t, 300, c.minWords)
	assert.Equal(t, 320, c.maxWords)

	c = newChunker(400, 100)
	assert.Less(t, c.minWords, c.maxWords)
}
