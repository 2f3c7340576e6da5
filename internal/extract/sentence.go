// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Splitter breaks paragraph text into sentences.
type Splitter interface {
	Split(text string) []string
}

// PunktSplitter splits English text with the Punkt sentence boundary
// detector trained on the bundled English model.
type PunktSplitter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

// NewPunktSplitter loads the English Punkt model.
func NewPunktSplitter() (*PunktSplitter, error) {
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("loading English sentence model: %w", err)
	}
	return &PunktSplitter{tokenizer: tok}, nil
}

// Split returns the sentences of text with surrounding whitespace removed.
func (s *PunktSplitter) Split(text string) []string {
	var out []string
	for _, sent := range s.tokenizer.Tokenize(text) {
		if t := strings.TrimSpace(sent.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

var newlineReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// ContextSentence returns the last sentence that contains citation, with
// line breaks turned into spaces. It returns "" when no sentence contains
// the citation string or the citation string is empty.
func ContextSentence(sents []string, citation string) string {
	if citation == "" {
		return ""
	}
	var found string
	for _, s := range sents {
		if strings.Contains(s, citation) {
			found = s
		}
	}
	return strings.TrimSpace(newlineReplacer.Replace(found))
}
