package parse

import (
	"fmt"
	"strings"

	"github.com/jakelever/kindred-sub000/internal/diag"
	"github.com/jakelever/kindred-sub000/internal/model"
	"github.com/jdkato/prose/v2"
	"github.com/sirupsen/logrus"
)

// ChainLabel is the dependency label of the surface chain ProseParser emits
const ChainLabel = "next"

// ProseParser segments, tokenizes and POS-tags text with prose. prose has no
// dependency parser, so each token governs the token that follows it.
type ProseParser struct {
	logger *logrus.Logger
}

// NewProseParser creates a parser. A nil logger discards progress messages.
func NewProseParser(logger *logrus.Logger) *ProseParser {
	if logger == nil {
		logger = diag.NewNopLogger()
	}
	return &ProseParser{logger: logger}
}

// Parse fills documents that have no sentences yet, then annotates entities
func (p *ProseParser) Parse(corpus *model.Corpus) error {
	parsed := 0
	for i, doc := range corpus.Documents {
		if len(doc.Sentences) > 0 {
			continue
		}
		sentences, err := p.ParseText(doc.Text)
		if err != nil {
			return fmt.Errorf("parse document %d: %w", i, err)
		}
		for _, s := range sentences {
			s.SourceFilename = doc.SourceFilename
		}
		doc.Sentences = sentences
		parsed++
	}

	AnnotateEntities(corpus)
	p.logger.WithFields(logrus.Fields{
		"documents": len(corpus.Documents),
		"parsed":    parsed,
	}).Debug("Parsed corpus")
	return nil
}

// ParseText splits text into sentences whose token offsets index text
func (p *ProseParser) ParseText(text string) ([]*model.Sentence, error) {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, err
	}

	var out []*model.Sentence
	cursor := 0
	for _, ps := range doc.Sentences() {
		start := locate(text, ps.Text, cursor)
		if start < 0 {
			continue
		}
		end := start + len(ps.Text)
		cursor = end

		s, err := p.parseSentence(text, start, end)
		if err != nil {
			return nil, err
		}
		if len(s.Tokens) > 0 {
			out = append(out, s)
		}
	}
	return out, nil
}

func (p *ProseParser) parseSentence(text string, start, end int) (*model.Sentence, error) {
	sd, err := prose.NewDocument(text[start:end],
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, err
	}

	s := &model.Sentence{Text: text[start:end]}
	cursor := start
	for _, pt := range sd.Tokens() {
		pos := locate(text[:end], pt.Text, cursor)
		if pos < 0 {
			// the tokenizer rewrote this token; keep it with an empty span
			pos = cursor
			s.Tokens = append(s.Tokens, model.Token{Word: pt.Text, Lemma: strings.ToLower(pt.Text), POS: pt.Tag, StartPos: pos, EndPos: pos})
			continue
		}
		cursor = pos + len(pt.Text)
		s.Tokens = append(s.Tokens, model.Token{
			Word:     pt.Text,
			Lemma:    strings.ToLower(pt.Text),
			POS:      pt.Tag,
			StartPos: pos,
			EndPos:   cursor,
		})
	}

	for i := 1; i < len(s.Tokens); i++ {
		s.Dependencies = append(s.Dependencies, model.Dependency{Governor: i - 1, Dependent: i, Label: ChainLabel})
	}
	return s, s.Validate()
}

// locate finds needle in haystack at or after from
func locate(haystack, needle string, from int) int {
	if needle == "" || from > len(haystack) {
		return -1
	}
	i := strings.Index(haystack[from:], needle)
	if i < 0 {
		return -1
	}
	return from + i
}
