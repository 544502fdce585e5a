package engine

import (
	"fmt"
	"sync"

	"github.com/shapestore/shapestore/structure"
	"github.com/spaolacci/murmur3"
)

// Fingerprint hashes the sorted field-path set. Identical shapes reuse
// the same logical schema across uploads without any coordination.
func Fingerprint(d *structure.Descriptor) uint64 {
	return murmur3.Sum64([]byte(d.CanonicalShape()))
}

// SchemaName renders the deterministic name for a shape fingerprint.
func SchemaName(fp uint64) string {
	return fmt.Sprintf("json_data_%016x", fp)
}

// Registry remembers which shape each fingerprint was first seen with.
// Two concurrent uploads of the same shape resolve the same name without
// contention on anything but this bookkeeping map; a genuine hash
// collision is surfaced rather than silently merged.
type Registry struct {
	mu     sync.Mutex
	shapes map[uint64]string
}

func NewRegistry() *Registry {
	return &Registry{shapes: make(map[uint64]string)}
}

func (r *Registry) Resolve(fp uint64, shape string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if known, ok := r.shapes[fp]; ok {
		if known != shape {
			return "", &SchemaNameCollisionError{
				SchemaName: SchemaName(fp),
				Existing:   known,
				Incoming:   shape,
			}
		}
	} else {
		r.shapes[fp] = shape
	}
	return SchemaName(fp), nil
}

// SchemaNameCollisionError reports two distinct shapes hashing to the
// same fingerprint. Extremely rare; callers should treat it as a hard
// failure for the incoming upload.
type SchemaNameCollisionError struct {
	SchemaName string
	Existing   string
	Incoming   string
}

func (e *SchemaNameCollisionError) Error() string {
	return fmt.Sprintf("engine: schema name %s already bound to a different shape", e.SchemaName)
}
