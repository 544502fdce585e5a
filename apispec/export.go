package apispec

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/shapestore/shapestore/engine"
	"github.com/shapestore/shapestore/schema"
	"github.com/shapestore/shapestore/structure"
)

// Export renders a schema decision as an OpenAPI document with a single
// component schema named after the decision. Consumers get a standard
// description of stored shapes without touching the primary stores.
func Export(d *engine.Decision) *openapi3.T {
	var s *openapi3.Schema
	switch d.StorageType {
	case engine.StorageSQL:
		s = relationalSchema(d.Relational)
	default:
		s = documentSchema(d.Document)
	}

	return &openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:   d.SchemaName,
			Version: "0.0.1",
		},
		Paths: openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{d.SchemaName: s.NewRef()},
		},
	}
}

func relationalSchema(t *schema.Relational) *openapi3.Schema {
	ps := make(openapi3.Schemas)
	for _, c := range t.Columns {
		if c.PrimaryKey || c.ForeignKey != nil {
			continue
		}
		cs := &openapi3.Schema{
			Type:     columnType(c.Type),
			Nullable: c.Nullable,
			Format:   string(c.Pattern),
		}
		ps[c.Name] = cs.NewRef()
	}
	for _, nt := range t.NestedTables {
		ns := scalarArraySchema(nt)
		if ns == nil {
			ns = relationalSchema(nt)
		}
		if nt.IsArray {
			ns = &openapi3.Schema{
				Type:  openapi3.TypeArray,
				Items: ns.NewRef(),
			}
		}
		ps[schema.NormalizeName(nt.ParentField)] = ns.NewRef()
	}
	return &openapi3.Schema{
		Type:       openapi3.TypeObject,
		Properties: ps,
	}
}

// scalarArraySchema recognizes a value table, one element per row, and
// returns the element schema. Nil when the table holds real fields.
func scalarArraySchema(t *schema.Relational) *openapi3.Schema {
	for _, c := range t.Columns {
		if c.PrimaryKey || c.ForeignKey != nil {
			continue
		}
		if c.Name == "value" && c.Field == "" {
			return &openapi3.Schema{Type: columnType(c.Type)}
		}
		return nil
	}
	return nil
}

func columnType(sqlType string) string {
	switch sqlType {
	case "NUMERIC", "INTEGER", "REAL":
		return openapi3.TypeNumber
	case "BOOLEAN":
		return openapi3.TypeBoolean
	default:
		return openapi3.TypeString
	}
}

func documentSchema(d *schema.Document) *openapi3.Schema {
	return fieldStructureSchema(d.FieldStructure)
}

func fieldStructureSchema(fields map[string]schema.DocumentField) *openapi3.Schema {
	ps := make(openapi3.Schemas, len(fields))
	for name, f := range fields {
		ps[name] = fieldSchema(f).NewRef()
	}
	return &openapi3.Schema{
		Type:       openapi3.TypeObject,
		Properties: ps,
	}
}

func fieldSchema(f schema.DocumentField) *openapi3.Schema {
	switch {
	case f.Type == structure.TypeArray:
		var item *openapi3.Schema
		if f.Nested {
			item = fieldStructureSchema(f.Fields)
		} else {
			item = valueSchema(f.ItemType)
		}
		return &openapi3.Schema{
			Type:  openapi3.TypeArray,
			Items: item.NewRef(),
		}
	case f.Nested:
		return fieldStructureSchema(f.Fields)
	default:
		return valueSchema(f.Type)
	}
}

func valueSchema(t structure.FieldType) *openapi3.Schema {
	switch t {
	case structure.TypeNumber:
		return &openapi3.Schema{Type: openapi3.TypeNumber}
	case structure.TypeBoolean:
		return &openapi3.Schema{Type: openapi3.TypeBoolean}
	case structure.TypeString:
		return &openapi3.Schema{Type: openapi3.TypeString}
	case structure.TypeNull:
		return &openapi3.Schema{Nullable: true}
	default:
		// mixed and unknown shapes stay unconstrained
		return &openapi3.Schema{}
	}
}
