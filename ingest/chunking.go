package ingest

import (
	"regexp"
	"strings"
)

var sentenceBoundary = regexp.MustCompile(`([.!?])\s+`)

// chunker splits disclosure text into word-bounded chunks. Chunks close
// on a sentence boundary once minWords is reached, and the closing
// sentence is carried into the next chunk so neighbouring chunks overlap
// by one sentence of context.
type chunker struct {
	minWords int
	maxWords int
}

func newChunker(minWords int, maxWords int) *chunker {
	if maxWords <= 0 {
		maxWords = 320
	}
	if minWords <= 0 || minWords >= maxWords {
		minWords = 300
		if minWords >= maxWords {
			minWords = maxWords * 15 / 16
		}
	}
	return &chunker{minWords: minWords, maxWords: maxWords}
}

func (c *chunker) split(text string) []string {
	cleaned := strings.Join(strings.Fields(text), " ")
	if cleaned == "" {
		return nil
	}

	marked := sentenceBoundary.ReplaceAllString(cleaned, "$1\n")
	sentences := strings.Split(marked, "\n")

	var chunks []string
	var current []string
	lastSentence := ""

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
		}
	}

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		words := strings.Fields(sentence)

		if len(current) == 0 && lastSentence != "" {
			current = append(current, strings.Fields(lastSentence)...)
		}

		if len(current) > 0 && len(current)+len(words) > c.maxWords {
			if len(words) < len(current) {
				lastSentence = strings.Join(current[len(current)-len(words):], " ")
			} else {
				lastSentence = sentence
			}
			flush()
			current = words
		} else {
			current = append(current, words...)
		}

		if len(current) >= c.minWords && endsSentence(sentence) {
			lastSentence = sentence
			flush()
			current = nil
		}
	}

	flush()
	return chunks
}

func endsSentence(sentence string) bool {
	return strings.HasSuffix(sentence, ".") ||
		strings.HasSuffix(sentence, "!") ||
		strings.HasSuffix(sentence, "?")
}
