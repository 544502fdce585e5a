package structure

import (
	"sort"
	"strings"

	"github.com/shapestore/shapestore/pattern"
	"github.com/valyala/fastjson"
)

// Hard ceiling on recursion. Input nested past this point is rejected as
// inconsistent rather than walked.
const maxAnalyzeDepth = 32

// AnalyzeBytes parses a payload and analyzes it. A JSON array becomes a
// batch of records, a single object a batch of one.
func AnalyzeBytes(b []byte) (*Descriptor, error) {
	v, err := fastjson.ParseBytes(b)
	if err != nil {
		return nil, err
	}
	return AnalyzeValue(v)
}

// AnalyzeValue analyzes an already-parsed payload root.
func AnalyzeValue(v *fastjson.Value) (*Descriptor, error) {
	switch v.Type() {
	case fastjson.TypeArray:
		a, err := v.Array()
		if err != nil {
			return nil, err
		}
		d, err := Analyze(a)
		if err != nil {
			return nil, err
		}
		d.IsArrayRoot = true
		return d, nil
	case fastjson.TypeObject:
		return Analyze([]*fastjson.Value{v})
	default:
		return nil, &InconsistentArrayError{Reason: "payload root must be an object or an array of objects"}
	}
}

// Analyze flattens each record into path profiles, merges them with type
// widening, and computes the batch consistency score. Records must be
// JSON objects and the batch must be non-empty.
func Analyze(records []*fastjson.Value) (*Descriptor, error) {
	if len(records) == 0 {
		return nil, &EmptyInputError{}
	}

	merged := make(map[string]FieldProfile)
	topSets := make([]string, 0, len(records))

	for _, r := range records {
		o, err := r.Object()
		if err != nil {
			return nil, &InconsistentArrayError{Reason: "array mixes objects and scalars"}
		}

		fields := make(map[string]FieldProfile)
		if err := flattenObject(o, "", 0, fields); err != nil {
			return nil, err
		}

		top := make([]string, 0, o.Len())
		o.Visit(func(key []byte, _ *fastjson.Value) {
			top = append(top, string(key))
		})
		sort.Strings(top)
		topSets = append(topSets, strings.Join(top, ","))

		for p, fp := range fields {
			if cur, ok := merged[p]; ok {
				merged[p] = mergeProfiles(cur, fp)
			} else {
				merged[p] = fp
			}
		}
	}

	depth := 0
	for p := range merged {
		if d := pathDepth(p); d > depth {
			depth = d
		}
	}

	consistency := 1.0
	if len(records) > 1 {
		consistency = modalShare(topSets)
	}

	return &Descriptor{
		FieldCount:   len(merged),
		NestingDepth: depth,
		Fields:       merged,
		Consistency:  consistency,
		RecordCount:  len(records),
	}, nil
}

// modalShare is the fraction of records whose top-level field set equals
// the most common field set.
func modalShare(sets []string) float64 {
	counts := make(map[string]int, len(sets))
	for _, s := range sets {
		counts[s]++
	}
	best := 0
	for _, n := range counts {
		if n > best {
			best = n
		}
	}
	return float64(best) / float64(len(sets))
}

func flattenObject(o *fastjson.Object, prefix string, depth int, out map[string]FieldProfile) error {
	if depth > maxAnalyzeDepth {
		return &InconsistentArrayError{Path: prefix, Reason: "nesting exceeds safety ceiling"}
	}

	var visitErr error
	o.Visit(func(key []byte, v *fastjson.Value) {
		if visitErr != nil {
			return
		}
		p := string(key)
		if prefix != "" {
			p = prefix + "." + p
		}
		visitErr = flattenValue(v, p, depth+1, out)
	})
	return visitErr
}

func flattenValue(v *fastjson.Value, path string, depth int, out map[string]FieldProfile) error {
	if depth > maxAnalyzeDepth {
		return &InconsistentArrayError{Path: path, Reason: "nesting exceeds safety ceiling"}
	}

	record := func(fp FieldProfile) {
		if cur, ok := out[path]; ok {
			out[path] = mergeProfiles(cur, fp)
		} else {
			out[path] = fp
		}
	}

	switch v.Type() {
	case fastjson.TypeObject:
		record(FieldProfile{Type: TypeObject})
		o, err := v.Object()
		if err != nil {
			return err
		}
		return flattenObject(o, path, depth, out)

	case fastjson.TypeArray:
		elems, err := v.Array()
		if err != nil {
			return err
		}
		return flattenArray(elems, path, depth, record, out)

	case fastjson.TypeString:
		s, err := v.StringBytes()
		if err != nil {
			return err
		}
		record(FieldProfile{Type: TypeString, Pattern: pattern.Detect(string(s))})

	case fastjson.TypeNumber:
		record(FieldProfile{Type: TypeNumber})

	case fastjson.TypeTrue, fastjson.TypeFalse:
		record(FieldProfile{Type: TypeBoolean})

	case fastjson.TypeNull:
		record(FieldProfile{Type: TypeNull, Nullable: true})
	}

	return nil
}

func flattenArray(elems []*fastjson.Value, path string, depth int, record func(FieldProfile), out map[string]FieldProfile) error {
	var itemType FieldType
	hasObject := false
	hasScalar := false

	for _, e := range elems {
		switch e.Type() {
		case fastjson.TypeObject:
			hasObject = true
			itemType = Widen(itemType, TypeObject)
			o, err := e.Object()
			if err != nil {
				return err
			}
			// element fields live under a "[]" segment so depth counting
			// and fingerprints see them as one level down
			if err := flattenObject(o, path+"[]", depth+1, out); err != nil {
				return err
			}
		case fastjson.TypeArray:
			hasScalar = true
			itemType = Widen(itemType, TypeArray)
		case fastjson.TypeString:
			hasScalar = true
			itemType = Widen(itemType, TypeString)
		case fastjson.TypeNumber:
			hasScalar = true
			itemType = Widen(itemType, TypeNumber)
		case fastjson.TypeTrue, fastjson.TypeFalse:
			hasScalar = true
			itemType = Widen(itemType, TypeBoolean)
		case fastjson.TypeNull:
			itemType = Widen(itemType, TypeNull)
		}
	}

	if hasObject && hasScalar {
		return &InconsistentArrayError{Path: path, Reason: "array mixes objects and scalars"}
	}

	record(FieldProfile{Type: TypeArray, IsArray: true, ItemType: itemType})
	return nil
}
