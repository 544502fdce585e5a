package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shapestore/shapestore/structure"
)

// fieldNode is the descriptor's flat path map folded back into a tree so
// nested tables and field structures can be emitted recursively.
type fieldNode struct {
	name       string
	profile    structure.FieldProfile
	hasProfile bool
	children   map[string]*fieldNode
}

func newFieldNode(name string) *fieldNode {
	return &fieldNode{name: name, children: make(map[string]*fieldNode)}
}

func (n *fieldNode) childNames() []string {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func buildTree(d *structure.Descriptor) *fieldNode {
	root := newFieldNode("")
	for _, path := range d.Paths() {
		cur := root
		for _, seg := range strings.Split(path, ".") {
			name := strings.TrimSuffix(seg, "[]")
			next, ok := cur.children[name]
			if !ok {
				next = newFieldNode(name)
				cur.children[name] = next
			}
			cur = next
		}
		cur.profile = d.Fields[path]
		cur.hasProfile = true
	}
	return root
}

func sqlType(t structure.FieldType) string {
	switch t {
	case structure.TypeNumber:
		return "NUMERIC"
	case structure.TypeBoolean:
		return "BOOLEAN"
	default:
		// string, null-only and mixed fields all land in TEXT; mixed is
		// the textual fallback for fields excluded from column synthesis
		return "TEXT"
	}
}

// BuildRelational synthesizes a primary table plus nested tables from a
// descriptor. Every table gets a synthetic id primary key; every nested
// table gets a foreign key back to its parent.
func BuildRelational(d *structure.Descriptor, tableName string) *Relational {
	root := buildTree(d)
	return buildTable(root, NormalizeName(tableName), "", "", false)
}

func buildTable(n *fieldNode, tableName, parentTable, parentField string, isArray bool) *Relational {
	t := &Relational{
		TableName:   tableName,
		PrimaryKey:  "id",
		ParentField: parentField,
		IsArray:     isArray,
	}

	used := map[string]bool{"id": true}
	t.Columns = append(t.Columns, Column{
		Name:       "id",
		Type:       "INTEGER",
		PrimaryKey: true,
	})
	if parentTable != "" {
		t.Columns = append(t.Columns, Column{
			Name:       parentTable + "_id",
			Type:       "INTEGER",
			ForeignKey: &ForeignKey{Table: parentTable, Column: "id"},
		})
		used[parentTable+"_id"] = true
	}

	// A scalar-array table stores one element per row.
	if n.hasProfile && n.profile.IsArray && n.profile.ItemType != structure.TypeObject {
		t.Columns = append(t.Columns, Column{
			Name:     "value",
			Type:     sqlType(n.profile.ItemType),
			Nullable: true,
		})
		return t
	}

	for _, name := range n.childNames() {
		child := n.children[name]
		p := child.profile

		switch {
		case p.IsArray && p.ItemType == structure.TypeObject:
			t.addNested(child, tableName, name, true)
		case p.IsArray:
			t.addNested(child, tableName, name, true)
		case p.Type == structure.TypeObject:
			t.addNested(child, tableName, name, false)
		default:
			// mixed fields degrade to the textual fallback column
			t.Columns = append(t.Columns, Column{
				Name:     claimColumnName(used, name),
				Type:     sqlType(p.Type),
				Nullable: p.Nullable || p.Type == structure.TypeNull,
				Pattern:  p.Pattern,
				Field:    name,
			})
		}
	}

	return t
}

// claimColumnName resolves a field name onto a free column name. A field
// called "id" (or one clashing with the foreign key) gets a numeric
// suffix rather than colliding with the synthetic keys.
func claimColumnName(used map[string]bool, field string) string {
	name := NormalizeName(field)
	for i := 2; used[name]; i++ {
		name = fmt.Sprintf("%s_%d", NormalizeName(field), i)
	}
	used[name] = true
	return name
}

func (t *Relational) addNested(child *fieldNode, parentTable, field string, isArray bool) {
	name := NormalizeName(parentTable + "_" + field)
	nested := buildTable(child, name, parentTable, field, isArray)
	t.NestedTables = append(t.NestedTables, nested)

	relType := "one_to_one"
	if isArray {
		relType = "one_to_many"
	}
	t.Relationships = append(t.Relationships, Relationship{
		Type:       relType,
		FromTable:  name,
		FromColumn: parentTable + "_id",
		ToTable:    parentTable,
		ToColumn:   "id",
		Field:      field,
	})
}

// BuildDocument maps the field tree directly onto a document schema.
// Nothing is dropped here; mixed fields keep item_type mixed.
func BuildDocument(d *structure.Descriptor, collectionName string) *Document {
	root := buildTree(d)
	return &Document{
		CollectionName: NormalizeName(collectionName),
		FieldStructure: buildFieldStructure(root),
	}
}

func buildFieldStructure(n *fieldNode) map[string]DocumentField {
	if len(n.children) == 0 {
		return nil
	}
	fields := make(map[string]DocumentField, len(n.children))
	for _, name := range n.childNames() {
		child := n.children[name]
		p := child.profile

		f := DocumentField{Type: p.Type}
		switch {
		case p.IsArray:
			f.Type = structure.TypeArray
			f.ItemType = p.ItemType
			if f.ItemType == "" {
				f.ItemType = structure.TypeMixed
			}
			if p.ItemType == structure.TypeObject {
				f.Nested = true
				f.Fields = buildFieldStructure(child)
			}
		case p.Type == structure.TypeObject:
			f.Nested = true
			f.Fields = buildFieldStructure(child)
		}
		fields[SanitizeFieldName(name)] = f
	}
	return fields
}
