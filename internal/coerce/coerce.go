package coerce

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the native family a declared UPnP data type converts to.
type Kind int

const (
	KindUnknown Kind = iota
	KindInteger
	KindFloat
	KindString
	KindTrue
	KindFalse
	KindBoolean
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	case KindBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// table maps declared data types to their native kind.
// The "1/true/yes" and "0/false/no" rows are literal data-type tokens seen in
// vendor schemas that use boolean-like enumerations as the type name.
var table = map[string]Kind{
	"ui1": KindInteger,
	"ui2": KindInteger,
	"ui4": KindInteger,
	"i1":  KindInteger,
	"i2":  KindInteger,
	"i4":  KindInteger,
	"int": KindInteger,

	"r4":         KindFloat,
	"r8":         KindFloat,
	"number":     KindFloat,
	"fixed.14.4": KindFloat,
	"float":      KindFloat,

	"char":   KindString,
	"string": KindString,
	"uuid":   KindString,

	"1":    KindTrue,
	"true": KindTrue,
	"yes":  KindTrue,

	"0":     KindFalse,
	"false": KindFalse,
	"no":    KindFalse,

	"boolean": KindBoolean,
}

// KindOf returns the kind for a declared data type.
func KindOf(dataType string) Kind {
	return table[strings.TrimSpace(dataType)]
}

// Coerce converts raw wire text into a native value using the declared data type.
// Integers are int64, floats are float64, booleans are bool. The second result is
// false when there is no value: the type is unrecognized, a string container was
// empty, or numeric text did not parse.
func Coerce(dataType string, raw string) (any, bool) {
	switch KindOf(dataType) {
	case KindInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true

	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, false
		}
		return f, true

	case KindString:
		if raw == "" {
			return nil, false
		}
		return raw, true

	case KindTrue:
		return true, true

	case KindFalse:
		return false, true

	case KindBoolean:
		b, ok := ParseBool(raw)
		if !ok {
			return nil, false
		}
		return b, true

	default:
		return nil, false
	}
}

// ParseBool parses UPnP boolean text ("1", "true", "yes", "0", "false", "no").
func ParseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	default:
		return false, false
	}
}

// Format renders a native in-argument value as wire text.
// Booleans use the UPnP "1"/"0" form.
func Format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "1"
		}
		return "0"
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
