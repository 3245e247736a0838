package orchestrator

import "strings"

// sentenceEnders are the characters that can close a sentence.
var sentenceEnders = map[byte]bool{'.': true, '!': true, '?': true, '\n': true}

// minSentenceLen is the shortest trimmed buffer length that may flush
// on a sentence boundary, avoiding a flush on abbreviations like "Dr.".
const minSentenceLen = 10

// sentenceBuffer accumulates streamed LLM tokens and releases complete
// sentences for TTS as soon as a boundary is crossed.
type sentenceBuffer struct {
	buf strings.Builder
}

// Add appends one token and reports a sentence ready for TTS, if the
// token just closed one. ok is false when the buffer should keep
// accumulating.
func (s *sentenceBuffer) Add(token string) (sentence string, ok bool) {
	s.buf.WriteString(token)
	if token == "" {
		return "", false
	}
	trimmed := strings.TrimSpace(s.buf.String())
	if trimmed == "" {
		return "", false
	}
	last := trimmed[len(trimmed)-1]
	if !sentenceEnders[last] {
		return "", false
	}
	if len(trimmed) < minSentenceLen {
		return "", false
	}
	s.buf.Reset()
	return trimmed, true
}

// Flush returns any remaining buffered text, trimmed, clearing the
// buffer. Called once after the LLM stream ends to release a trailing
// partial sentence.
func (s *sentenceBuffer) Flush() string {
	text := strings.TrimSpace(s.buf.String())
	s.buf.Reset()
	return text
}
