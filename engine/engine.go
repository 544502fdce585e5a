package engine

import (
	"github.com/shapestore/shapestore/schema"
	"github.com/shapestore/shapestore/structure"
	"github.com/valyala/fastjson"
)

type StorageType string

const (
	StorageSQL   StorageType = "sql"
	StorageNoSQL StorageType = "nosql"
)

// Policy holds the routing thresholds. The numbers are inherited
// heuristics, kept configurable rather than derived.
type Policy struct {
	SQLConsistencyThreshold float64
	SQLMaxNestingDepth      int
	SQLMaxFieldCount        int
}

func DefaultPolicy() Policy {
	return Policy{
		SQLConsistencyThreshold: 0.70,
		SQLMaxNestingDepth:      3,
		SQLMaxFieldCount:        50,
	}
}

// Reasoning preserves the exact inputs that drove a decision so it can
// be recomputed and audited later.
type Reasoning struct {
	Consistency  float64 `json:"consistency"`
	NestingDepth int     `json:"nesting_depth"`
	FieldCount   int     `json:"field_count"`
}

// Decision is the routing verdict plus the schema built for the chosen
// backend. Exactly one of Relational/Document is set, tagged by
// StorageType. SchemaName is never mutated after creation.
type Decision struct {
	StorageType StorageType        `json:"storage_type"`
	Relational  *schema.Relational `json:"relational_schema,omitempty"`
	Document    *schema.Document   `json:"document_schema,omitempty"`
	SchemaName  string             `json:"schema_name"`
	Reasoning   Reasoning          `json:"reasoning"`
}

// Engine routes descriptors to sql or nosql storage. The schema-name
// registry is injected so tests can reset it between runs.
type Engine struct {
	policy   Policy
	registry *Registry
}

func New(policy Policy, registry *Registry) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Engine{policy: policy, registry: registry}
}

// Decide analyzes the records and applies the threshold policy.
func (e *Engine) Decide(records []*fastjson.Value) (*Decision, error) {
	d, err := structure.Analyze(records)
	if err != nil {
		return nil, err
	}
	return e.DecideDescriptor(d)
}

// DecideDescriptor is the pure part: a deterministic map from descriptor
// to decision given fixed thresholds.
func (e *Engine) DecideDescriptor(d *structure.Descriptor) (*Decision, error) {
	name, err := e.registry.Resolve(Fingerprint(d), d.CanonicalShape())
	if err != nil {
		return nil, err
	}

	dec := &Decision{
		SchemaName: name,
		Reasoning: Reasoning{
			Consistency:  d.Consistency,
			NestingDepth: d.NestingDepth,
			FieldCount:   d.FieldCount,
		},
	}

	if d.Consistency >= e.policy.SQLConsistencyThreshold &&
		d.NestingDepth <= e.policy.SQLMaxNestingDepth &&
		d.FieldCount <= e.policy.SQLMaxFieldCount {
		dec.StorageType = StorageSQL
		dec.Relational = schema.BuildRelational(d, name)
	} else {
		dec.StorageType = StorageNoSQL
		dec.Document = schema.BuildDocument(d, name)
	}

	return dec, nil
}
