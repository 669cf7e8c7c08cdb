package services

import (
	"strings"
)

// ChunkingService splits document text into sentence-aligned chunks for
// embedding. Sentences are never split; a chunk holding a single sentence
// longer than maxChunkSize is allowed to exceed it.
type ChunkingService struct {
	maxChunkSize int
}

func NewChunkingService(maxChunkSize int) *ChunkingService {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	return &ChunkingService{maxChunkSize: maxChunkSize}
}

// Split breaks text on sentence boundaries (. ! ?) and greedily packs
// sentences into chunks of at most maxChunkSize characters. No sentence
// content is lost; whitespace-only fragments are discarded before packing.
func (cs *ChunkingService) Split(text string) []string {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	var chunks []string
	var current strings.Builder

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if current.Len()+len(sentence) > cs.maxChunkSize && current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(sentence)
		current.WriteString(". ")
	}

	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}
