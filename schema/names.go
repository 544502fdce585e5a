package schema

import (
	"fmt"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Longest identifier most backends accept without complaint.
const maxNameLen = 63

// NormalizeName maps an arbitrary field or table name onto the fixed
// naming convention: lower-case, non-alphanumerics replaced with '_'.
// Names that would truncate get a content hash suffix so two long names
// sharing a prefix cannot collide.
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" {
		out = "_"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "t_" + out
	}
	if len(out) > maxNameLen {
		suffix := fmt.Sprintf("_%08x", murmur3.Sum32([]byte(out)))
		out = out[:maxNameLen-len(suffix)] + suffix
	}
	return out
}

// SanitizeFieldName strips only what a document store cannot represent
// in a field identifier.
func SanitizeFieldName(s string) string {
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "\x00", "")
	if s == "" {
		return "_"
	}
	return s
}
