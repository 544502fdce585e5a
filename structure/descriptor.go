package structure

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shapestore/shapestore/pattern"
)

// FieldType is the closed set of inferred JSON value types. Two distinct
// concrete types widen to TypeMixed; there is no partial ordering beyond
// that.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeNull    FieldType = "null"
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
	TypeMixed   FieldType = "mixed"
)

// Widen combines two type observations for the same field path.
func Widen(a, b FieldType) FieldType {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if a == b {
		return a
	}
	// null does not demote a concrete type, it flips the nullable flag
	// at the profile level instead.
	if a == TypeNull {
		return b
	}
	if b == TypeNull {
		return a
	}
	return TypeMixed
}

// FieldProfile describes one observed field path.
type FieldProfile struct {
	Type     FieldType
	Nullable bool
	Pattern  pattern.Kind
	IsArray  bool
	ItemType FieldType // element type for arrays, "" when unknown (empty array)
}

func mergeProfiles(a, b FieldProfile) FieldProfile {
	return FieldProfile{
		Type:     Widen(a.Type, b.Type),
		Nullable: a.Nullable || b.Nullable,
		Pattern:  pattern.Merge(a.Pattern, b.Pattern),
		IsArray:  a.IsArray || b.IsArray,
		ItemType: Widen(a.ItemType, b.ItemType),
	}
}

// Descriptor is the shape summary of one or more JSON records. Paths use
// "." for object nesting and a "[]" suffix on segments whose children
// live inside array elements.
type Descriptor struct {
	FieldCount   int
	NestingDepth int
	Fields       map[string]FieldProfile
	Consistency  float64
	IsArrayRoot  bool
	RecordCount  int
}

// Paths returns the sorted field-path set. This is the canonical input
// to shape fingerprinting, so the ordering must stay stable.
func (d *Descriptor) Paths() []string {
	ps := make([]string, 0, len(d.Fields))
	for p := range d.Fields {
		ps = append(ps, p)
	}
	sort.Strings(ps)
	return ps
}

// CanonicalShape renders the sorted path set as a single string.
func (d *Descriptor) CanonicalShape() string {
	return strings.Join(d.Paths(), "\n")
}

func pathDepth(p string) int {
	n := strings.Count(p, ".") + strings.Count(p, "[]")
	return n + 1
}

// EmptyInputError reports an analyze call with no records.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "structure: no records to analyze"
}

// InconsistentArrayError reports input the analyzer refuses to profile:
// arrays mixing objects and scalars, non-object records, or nesting past
// the safety ceiling.
type InconsistentArrayError struct {
	Path   string
	Reason string
}

func (e *InconsistentArrayError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("structure: %s", e.Reason)
	}
	return fmt.Sprintf("structure: %s at %q", e.Reason, e.Path)
}
