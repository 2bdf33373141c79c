package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Relation links two or more entities under a relation type
type Relation struct {
	Type             string
	Entities         []*Entity
	ArgNames         []string // Optional role names, parallel to Entities
	SourceRelationID string
	Probability      *float64 // Set on predicted relations when the estimator supports it
}

// NewRelation validates arity and role names before building the relation
func NewRelation(relType string, entities []*Entity, argNames []string) (*Relation, error) {
	if len(entities) < 2 {
		return nil, fmt.Errorf("%w: relation %q needs at least 2 entities, got %d", ErrConfig, relType, len(entities))
	}
	if argNames != nil && len(argNames) != len(entities) {
		return nil, fmt.Errorf("%w: relation %q has %d argNames for %d entities", ErrConfig, relType, len(argNames), len(entities))
	}
	return &Relation{
		Type:     relType,
		Entities: append([]*Entity(nil), entities...),
		ArgNames: append([]string(nil), argNames...),
	}, nil
}

// RelationKey identifies a relation class: its type and argument role names
type RelationKey struct {
	Type     string
	ArgNames string // Role names joined with "|", empty when absent
}

// NewRelationKey builds a key from a type and role names
func NewRelationKey(relType string, argNames []string) RelationKey {
	return RelationKey{Type: relType, ArgNames: strings.Join(argNames, "|")}
}

// Args returns the role names, or nil when the key has none
func (k RelationKey) Args() []string {
	if k.ArgNames == "" {
		return nil
	}
	return strings.Split(k.ArgNames, "|")
}

func (k RelationKey) String() string {
	if k.ArgNames == "" {
		return k.Type
	}
	return k.Type + "(" + strings.ReplaceAll(k.ArgNames, "|", ",") + ")"
}

// Key returns the relation's class key
func (r *Relation) Key() RelationKey {
	return NewRelationKey(r.Type, r.ArgNames)
}

// EntityIDs returns the entity IDs in argument order
func (r *Relation) EntityIDs() []int {
	ids := make([]int, len(r.Entities))
	for i, e := range r.Entities {
		ids[i] = e.ID
	}
	return ids
}

// EntityTypes returns the entity types in argument order
func (r *Relation) EntityTypes() []string {
	types := make([]string, len(r.Entities))
	for i, e := range r.Entities {
		types[i] = e.Type
	}
	return types
}

// identity is used for de-duplication: class key plus entity ID tuple
func (r *Relation) identity() string {
	var b strings.Builder
	b.WriteString(r.Type)
	b.WriteByte(0)
	b.WriteString(strings.Join(r.ArgNames, "|"))
	for _, id := range r.EntityIDs() {
		b.WriteByte(0)
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}
