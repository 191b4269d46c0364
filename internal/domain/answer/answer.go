// Package answer assembles retrieved passages into caller-facing text and citations.
package answer

import (
	"strings"

	"github.com/thebeast/llamarouter/internal/domain/retrieval"
)

// Separator joins passage texts.
const Separator = "\n\n"

// fileNameKeys are checked in priority order for a citation's file name.
var fileNameKeys = []string{"file_name", "filename", "document_title"}

const webURLKey = "web_url"

// Citation references the source of one or more passages.
// Identity is the exact (FileName, WebURL) pair, including both being nil.
type Citation struct {
	FileName *string `json:"file_name"`
	WebURL   *string `json:"web_url"`
}

// Answer is the assembled result of a retrieval.
type Answer struct {
	Text      string
	Citations []Citation
}

// Assemble joins passage texts in retrieval order and extracts first-occurrence,
// deduplicated citations. Passages without text contribute nothing to Text.
// An empty input yields an empty Answer with a non-nil citation list.
func Assemble(passages []retrieval.Passage) Answer {
	texts := make([]string, 0, len(passages))
	citations := make([]Citation, 0)
	seen := make(map[citationKey]struct{})

	for i := range passages {
		p := &passages[i]
		if t := p.Text(); t != "" {
			texts = append(texts, t)
		}

		c, ok := citationOf(p)
		if !ok {
			continue
		}
		k := keyOf(c)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		citations = append(citations, c)
	}

	return Answer{
		Text:      strings.Join(texts, Separator),
		Citations: citations,
	}
}

func citationOf(p *retrieval.Passage) (Citation, bool) {
	var c Citation
	for _, k := range fileNameKeys {
		if v, ok := p.MetadataString(k); ok {
			c.FileName = &v
			break
		}
	}
	if v, ok := p.MetadataString(webURLKey); ok {
		c.WebURL = &v
	}
	return c, c.FileName != nil || c.WebURL != nil
}

type citationKey struct {
	fileName, webURL       string
	hasFileName, hasWebURL bool
}

func keyOf(c Citation) citationKey {
	var k citationKey
	if c.FileName != nil {
		k.fileName, k.hasFileName = *c.FileName, true
	}
	if c.WebURL != nil {
		k.webURL, k.hasWebURL = *c.WebURL, true
	}
	return k
}
