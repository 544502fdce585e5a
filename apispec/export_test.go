package apispec

import (
	"encoding/json"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"

	"github.com/shapestore/shapestore/engine"
	"github.com/shapestore/shapestore/structure"
)

func decide(t *testing.T, payload string) *engine.Decision {
	t.Helper()
	d, err := structure.AnalyzeBytes([]byte(payload))
	assert.Nil(t, err)
	dec, err := engine.New(engine.DefaultPolicy(), nil).DecideDescriptor(d)
	assert.Nil(t, err)
	return dec
}

func TestExportRelational(t *testing.T) {
	dec := decide(t, `{"name": "ada", "age": 36, "email": "ada@example.com"}`)
	assert.Equal(t, engine.StorageSQL, dec.StorageType)

	doc := Export(dec)
	assert.Equal(t, "3.0.0", doc.OpenAPI)
	assert.Equal(t, dec.SchemaName, doc.Info.Title)

	ref, ok := doc.Components.Schemas[dec.SchemaName]
	assert.True(t, ok)
	s := ref.Value
	assert.Equal(t, openapi3.TypeObject, s.Type)

	// the synthetic primary key is not part of the payload shape
	_, hasID := s.Properties["id"]
	assert.False(t, hasID)

	assert.Equal(t, openapi3.TypeString, s.Properties["name"].Value.Type)
	assert.Equal(t, openapi3.TypeNumber, s.Properties["age"].Value.Type)
	assert.Equal(t, "email", s.Properties["email"].Value.Format)
}

func TestExportRelationalNested(t *testing.T) {
	dec := decide(t, `{"name": "a", "address": {"city": "x"}, "tags": ["p"]}`)
	assert.Equal(t, engine.StorageSQL, dec.StorageType)

	doc := Export(dec)
	s := doc.Components.Schemas[dec.SchemaName].Value

	addr := s.Properties["address"].Value
	assert.Equal(t, openapi3.TypeObject, addr.Type)
	assert.Equal(t, openapi3.TypeString, addr.Properties["city"].Value.Type)

	tags := s.Properties["tags"].Value
	assert.Equal(t, openapi3.TypeArray, tags.Type)
	assert.Equal(t, openapi3.TypeString, tags.Items.Value.Type)
}

func TestExportDocument(t *testing.T) {
	dec := decide(t, `{"a": {"b": {"c": {"d": 1}}}}`)
	assert.Equal(t, engine.StorageNoSQL, dec.StorageType)

	doc := Export(dec)
	s := doc.Components.Schemas[dec.SchemaName].Value
	assert.Equal(t, openapi3.TypeObject, s.Type)

	a := s.Properties["a"].Value
	b := a.Properties["b"].Value
	c := b.Properties["c"].Value
	assert.Equal(t, openapi3.TypeNumber, c.Properties["d"].Value.Type)
}

func TestExportMarshals(t *testing.T) {
	dec := decide(t, `{"id": 1, "name": "a"}`)
	doc := Export(dec)

	bs, err := json.Marshal(doc)
	assert.Nil(t, err)
	assert.NotEmpty(t, bs)
	assert.Contains(t, string(bs), dec.SchemaName)
}
