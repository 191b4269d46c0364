package retrieval

import "fmt"

// Passage is a single retrieved unit of text.
type Passage struct {
	text     string
	metadata map[string]any
	score    float64
}

// NewPassage creates a passage.
func NewPassage(text string, metadata map[string]any, score float64) Passage {
	return Passage{text: text, metadata: metadata, score: score}
}

// Text returns the passage text.
func (p *Passage) Text() string { return p.text }

// Metadata returns the passage metadata.
func (p *Passage) Metadata() map[string]any { return p.metadata }

// Score returns the relevance score.
func (p *Passage) Score() float64 { return p.score }

// MetadataString returns the metadata value for key rendered as a string.
// ok is false when the key is absent, null or an empty string.
func (p *Passage) MetadataString(key string) (string, bool) {
	v, present := p.metadata[key]
	if !present || v == nil {
		return "", false
	}
	s, isString := v.(string)
	if !isString {
		s = fmt.Sprint(v)
	}
	if s == "" {
		return "", false
	}
	return s, true
}
