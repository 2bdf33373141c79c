// Package corpusio reads and writes corpora as JSON documents.
package corpusio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jakelever/kindred-sub000/internal/model"
	"github.com/jakelever/kindred-sub000/internal/parse"
)

type corpusFile struct {
	Documents []documentFile `json:"documents"`
}

type documentFile struct {
	ID        string         `json:"id,omitempty"`
	Text      string         `json:"text"`
	Entities  []entityFile   `json:"entities"`
	Relations []relationFile `json:"relations"`
	Sentences []sentenceFile `json:"sentences,omitempty"`
}

type entityFile struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Text       string   `json:"text"`
	Spans      [][2]int `json:"spans"`
	ExternalID string   `json:"externalId,omitempty"`
}

type relationFile struct {
	ID          string   `json:"id,omitempty"`
	Type        string   `json:"type"`
	Args        []string `json:"args"`
	ArgNames    []string `json:"argNames,omitempty"`
	Probability *float64 `json:"probability,omitempty"`
}

type sentenceFile struct {
	Tokens []tokenFile `json:"tokens"`
}

// tokenFile offsets index the document text. Head is the sentence-local
// governor index; the root points to itself or is -1.
type tokenFile struct {
	Text  string `json:"text"`
	Lemma string `json:"lemma,omitempty"`
	POS   string `json:"pos,omitempty"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Head  int    `json:"head"`
	Dep   string `json:"dep,omitempty"`
}

// Read decodes a corpus. When every document carries sentences, entities
// are annotated on them and the corpus is marked parsed.
func Read(r io.Reader) (*model.Corpus, error) {
	var file corpusFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}

	corpus := model.NewCorpus()
	withSentences := 0
	for i, df := range file.Documents {
		doc, err := readDocument(corpus, df)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if len(doc.Sentences) > 0 {
			withSentences++
		}
		corpus.AddDocument(doc)
	}

	if len(corpus.Documents) > 0 && withSentences == len(corpus.Documents) {
		parse.AnnotateEntities(corpus)
	}
	return corpus, nil
}

// ReadFile reads a corpus from path, labelling documents with the file name
func ReadFile(path string) (*model.Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer func() { _ = f.Close() }()

	corpus, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	name := filepath.Base(path)
	for _, doc := range corpus.Documents {
		doc.SourceFilename = name
		for _, s := range doc.Sentences {
			s.SourceFilename = name
		}
	}
	return corpus, nil
}

func readDocument(corpus *model.Corpus, df documentFile) (*model.Document, error) {
	doc := &model.Document{Text: df.Text}

	for _, ef := range df.Entities {
		if ef.ID == "" {
			return nil, fmt.Errorf("%w: entity %q has no id", model.ErrConfig, ef.Text)
		}
		if doc.EntityBySourceID(ef.ID) != nil {
			return nil, fmt.Errorf("%w: duplicate entity id %q", model.ErrConfig, ef.ID)
		}
		spans := make([]model.Span, len(ef.Spans))
		for i, sp := range ef.Spans {
			if sp[0] < 0 || sp[1] < sp[0] || sp[1] > len(df.Text) {
				return nil, fmt.Errorf("%w: entity %q span [%d,%d) outside text", model.ErrConfig, ef.ID, sp[0], sp[1])
			}
			spans[i] = model.Span{Start: sp[0], End: sp[1]}
		}
		doc.Entities = append(doc.Entities, corpus.IDs.NewEntity(ef.Type, ef.Text, spans, ef.ID, ef.ExternalID))
	}

	for _, rf := range df.Relations {
		entities := make([]*model.Entity, len(rf.Args))
		for i, arg := range rf.Args {
			e := doc.EntityBySourceID(arg)
			if e == nil {
				return nil, fmt.Errorf("%w: relation %q references unknown entity %q", model.ErrConfig, rf.Type, arg)
			}
			entities[i] = e
		}
		var argNames []string
		if len(rf.ArgNames) > 0 {
			argNames = rf.ArgNames
		}
		rel, err := model.NewRelation(rf.Type, entities, argNames)
		if err != nil {
			return nil, err
		}
		rel.SourceRelationID = rf.ID
		rel.Probability = rf.Probability
		doc.AddRelation(rel)
	}

	for si, sf := range df.Sentences {
		s, err := readSentence(df.Text, sf)
		if err != nil {
			return nil, fmt.Errorf("sentence %d: %w", si, err)
		}
		doc.Sentences = append(doc.Sentences, s)
	}

	return doc, nil
}

func readSentence(text string, sf sentenceFile) (*model.Sentence, error) {
	s := &model.Sentence{}
	for i, tf := range sf.Tokens {
		if tf.Start < 0 || tf.End < tf.Start || tf.End > len(text) {
			return nil, fmt.Errorf("%w: token %d span [%d,%d) outside text", model.ErrConfig, i, tf.Start, tf.End)
		}
		if i > 0 && tf.Start < sf.Tokens[i-1].End {
			return nil, fmt.Errorf("%w: token %d starts at %d before the previous token ends at %d", model.ErrConfig, i, tf.Start, sf.Tokens[i-1].End)
		}
		s.Tokens = append(s.Tokens, model.Token{
			Word:     tf.Text,
			Lemma:    tf.Lemma,
			POS:      tf.POS,
			StartPos: tf.Start,
			EndPos:   tf.End,
		})
		if tf.Head >= 0 && tf.Head != i {
			s.Dependencies = append(s.Dependencies, model.Dependency{Governor: tf.Head, Dependent: i, Label: tf.Dep})
		}
	}
	if len(s.Tokens) > 0 {
		s.Text = text[s.Tokens[0].StartPos:s.Tokens[len(s.Tokens)-1].EndPos]
	}
	return s, s.Validate()
}

// Write encodes a corpus, predicted relations and probabilities included.
// Entities without a source id are written as "E<id>".
func Write(w io.Writer, corpus *model.Corpus) error {
	file := corpusFile{Documents: make([]documentFile, 0, len(corpus.Documents))}
	for _, doc := range corpus.Documents {
		file.Documents = append(file.Documents, writeDocument(doc))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("encode corpus: %w", err)
	}
	return nil
}

// WriteFile writes a corpus to path, creating parent directories
func WriteFile(path string, corpus *model.Corpus) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create corpus file: %w", err)
	}
	if err := Write(f, corpus); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeDocument(doc *model.Document) documentFile {
	df := documentFile{
		Text:      doc.Text,
		Entities:  make([]entityFile, 0, len(doc.Entities)),
		Relations: make([]relationFile, 0, len(doc.Relations)),
	}

	for _, e := range doc.Entities {
		ef := entityFile{ID: entityRef(e), Type: e.Type, Text: e.Text, ExternalID: e.ExternalID}
		for _, sp := range e.Position {
			ef.Spans = append(ef.Spans, [2]int{sp.Start, sp.End})
		}
		df.Entities = append(df.Entities, ef)
	}

	for _, r := range doc.Relations {
		rf := relationFile{ID: r.SourceRelationID, Type: r.Type, ArgNames: r.ArgNames, Probability: r.Probability}
		for _, e := range r.Entities {
			rf.Args = append(rf.Args, entityRef(e))
		}
		df.Relations = append(df.Relations, rf)
	}

	for _, s := range doc.Sentences {
		sf := sentenceFile{Tokens: make([]tokenFile, len(s.Tokens))}
		for i, t := range s.Tokens {
			sf.Tokens[i] = tokenFile{Text: t.Word, Lemma: t.Lemma, POS: t.POS, Start: t.StartPos, End: t.EndPos, Head: -1}
		}
		// one governor per token survives the round trip; extra edges of a
		// multigraph are dropped
		for _, d := range s.Dependencies {
			if sf.Tokens[d.Dependent].Head == -1 && d.Governor != d.Dependent {
				sf.Tokens[d.Dependent].Head = d.Governor
				sf.Tokens[d.Dependent].Dep = d.Label
			}
		}
		df.Sentences = append(df.Sentences, sf)
	}

	return df
}

func entityRef(e *model.Entity) string {
	if e.SourceEntityID != "" {
		return e.SourceEntityID
	}
	return "E" + strconv.Itoa(e.ID)
}
