package pattern

import (
	"regexp"

	"github.com/google/uuid"
)

// Kind names a semantic shape detected in a scalar value. It only ever
// enriches column metadata; storage routing never looks at it.
type Kind string

const (
	None          Kind = ""
	UUID          Kind = "uuid"
	Email         Kind = "email"
	URL           Kind = "url"
	DateTime      Kind = "datetime"
	IntegerString Kind = "integer"
)

var (
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	urlRe      = regexp.MustCompile(`^https?://\S+$`)
	dateTimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([Tt ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?([Zz]|[+-]\d{2}:?\d{2})?)?$`)
	integerRe  = regexp.MustCompile(`^-?\d+$`)
)

// Detect classifies a string value, first match wins. The priority order
// is fixed: uuid > email > url > datetime > integer-looking string.
func Detect(s string) Kind {
	if s == "" {
		return None
	}
	if _, err := uuid.Parse(s); err == nil && len(s) >= 32 {
		return UUID
	}
	if emailRe.MatchString(s) {
		return Email
	}
	if urlRe.MatchString(s) {
		return URL
	}
	if dateTimeRe.MatchString(s) {
		return DateTime
	}
	if integerRe.MatchString(s) {
		return IntegerString
	}
	return None
}

// Merge combines pattern observations across records. Disagreement
// clears the hint rather than guessing.
func Merge(a, b Kind) Kind {
	if a == b {
		return a
	}
	return None
}
