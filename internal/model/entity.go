package model

import "sync"

// Span is a half-open byte range [Start, End) into the owning document text
type Span struct {
	Start int
	End   int
}

// Overlaps reports whether two spans share at least one byte
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Entity is a tagged mention in a document (e.g. a drug or a gene).
// Position may hold several spans for discontiguous mentions.
type Entity struct {
	ID             int    // Allocated by the corpus IDAllocator
	Type           string // Entity type tag (e.g. "drug")
	Text           string // Surface text
	Position       []Span // Ordered byte spans
	SourceEntityID string // Identifier in the source annotation
	ExternalID     string // Ontology identifier
}

// Equal compares entities structurally. The allocated ID is ignored.
func (e *Entity) Equal(o *Entity) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Type != o.Type || e.Text != o.Text || e.SourceEntityID != o.SourceEntityID || e.ExternalID != o.ExternalID {
		return false
	}
	if len(e.Position) != len(o.Position) {
		return false
	}
	for i := range e.Position {
		if e.Position[i] != o.Position[i] {
			return false
		}
	}
	return true
}

// IDAllocator hands out entity IDs. IDs are unique and increasing for the
// lifetime of an allocator.
type IDAllocator struct {
	mu   sync.Mutex
	next int
}

// NewIDAllocator creates an allocator whose first ID is start
func NewIDAllocator(start int) *IDAllocator {
	return &IDAllocator{next: start}
}

// Next returns a fresh ID
func (a *IDAllocator) Next() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.next
	a.next++
	return id
}

// NewEntity creates an entity with an ID taken from the allocator
func (a *IDAllocator) NewEntity(entityType, text string, position []Span, sourceID, externalID string) *Entity {
	return &Entity{
		ID:             a.Next(),
		Type:           entityType,
		Text:           text,
		Position:       append([]Span(nil), position...),
		SourceEntityID: sourceID,
		ExternalID:     externalID,
	}
}
