package schema

import (
	"github.com/shapestore/shapestore/pattern"
	"github.com/shapestore/shapestore/structure"
)

// Column is one relational column. Pattern is descriptive metadata only;
// it never changes the physical type.
type Column struct {
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	Nullable   bool         `json:"nullable"`
	PrimaryKey bool         `json:"primary_key"`
	ForeignKey *ForeignKey  `json:"foreign_key,omitempty"`
	Pattern    pattern.Kind `json:"pattern,omitempty"`
	Field      string       `json:"field,omitempty"` // original JSON key before normalization
}

type ForeignKey struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

type Relationship struct {
	Type       string `json:"type"` // one_to_one or one_to_many
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
	Field      string `json:"field"`
}

// Relational is a table plus the nested tables synthesized from its
// object and array fields.
type Relational struct {
	TableName     string         `json:"table_name"`
	PrimaryKey    string         `json:"primary_key"`
	Columns       []Column       `json:"columns"`
	NestedTables  []*Relational  `json:"nested_tables,omitempty"`
	ParentField   string         `json:"parent_field,omitempty"`
	IsArray       bool           `json:"is_array,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty"`
}

// DocumentField mirrors one field in a document collection's structure
// tree.
type DocumentField struct {
	Type     structure.FieldType      `json:"type"`
	Nested   bool                     `json:"nested,omitempty"`
	ItemType structure.FieldType      `json:"item_type,omitempty"`
	Fields   map[string]DocumentField `json:"fields,omitempty"`
}

type Document struct {
	CollectionName string                   `json:"collection_name"`
	FieldStructure map[string]DocumentField `json:"field_structure"`
}
