package model

// Document owns text, entities, relations and, once parsed, sentences
type Document struct {
	Text           string
	Entities       []*Entity
	Relations      []*Relation
	Sentences      []*Sentence
	SourceFilename string

	relationIndex map[string]bool
}

// AddRelation appends a relation unless an identical one (same type, role
// names and entity IDs) is already present. It reports whether it was added.
func (d *Document) AddRelation(r *Relation) bool {
	if d.relationIndex == nil {
		d.relationIndex = make(map[string]bool, len(d.Relations))
		for _, existing := range d.Relations {
			d.relationIndex[existing.identity()] = true
		}
	}
	id := r.identity()
	if d.relationIndex[id] {
		return false
	}
	d.relationIndex[id] = true
	d.Relations = append(d.Relations, r)
	return true
}

// HasEntity reports whether the entity ID belongs to this document
func (d *Document) HasEntity(id int) bool {
	for _, e := range d.Entities {
		if e.ID == id {
			return true
		}
	}
	return false
}

// EntityBySourceID finds an entity by its annotation identifier
func (d *Document) EntityBySourceID(sourceID string) *Entity {
	for _, e := range d.Entities {
		if e.SourceEntityID == sourceID {
			return e
		}
	}
	return nil
}

// Corpus is an ordered collection of documents
type Corpus struct {
	Documents []*Document
	Parsed    bool
	IDs       *IDAllocator
}

// NewCorpus creates an empty corpus with its own ID allocator
func NewCorpus() *Corpus {
	return &Corpus{IDs: NewIDAllocator(1)}
}

// AddDocument appends a document
func (c *Corpus) AddDocument(d *Document) {
	c.Documents = append(c.Documents, d)
}

// Relations returns every relation in document order
func (c *Corpus) Relations() []*Relation {
	var out []*Relation
	for _, d := range c.Documents {
		out = append(out, d.Relations...)
	}
	return out
}

// CloneWithoutRelations copies the corpus with fresh entity IDs, the same
// sentences and entity annotations, and no relations. It is used to build
// held-out copies for prediction.
func (c *Corpus) CloneWithoutRelations() *Corpus {
	clone := &Corpus{Parsed: c.Parsed, IDs: c.IDs}
	if clone.IDs == nil {
		clone.IDs = NewIDAllocator(1)
	}

	for _, doc := range c.Documents {
		mapping := make(map[*Entity]*Entity, len(doc.Entities))
		nd := &Document{Text: doc.Text, SourceFilename: doc.SourceFilename}
		for _, e := range doc.Entities {
			ne := clone.IDs.NewEntity(e.Type, e.Text, e.Position, e.SourceEntityID, e.ExternalID)
			mapping[e] = ne
			nd.Entities = append(nd.Entities, ne)
		}

		for _, s := range doc.Sentences {
			ns := &Sentence{
				Text:           s.Text,
				Tokens:         append([]Token(nil), s.Tokens...),
				Dependencies:   append([]Dependency(nil), s.Dependencies...),
				SourceFilename: s.SourceFilename,
			}
			for _, a := range s.EntityAnnotations {
				ne, ok := mapping[a.Entity]
				if !ok {
					continue
				}
				ns.AddEntityAnnotation(ne, a.TokenIndices)
			}
			nd.Sentences = append(nd.Sentences, ns)
		}

		clone.Documents = append(clone.Documents, nd)
	}

	return clone
}
