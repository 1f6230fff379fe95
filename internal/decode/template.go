package decode

import (
	"strconv"
	"strings"
)

// Values is the placeholder expansion context for topic and autodiscovery
// templates.
type Values struct {
	// Circuit is the circuit's declared name. Serves both <circuit> and
	// <circuit_name>; profiles in the wild use the two interchangeably.
	Circuit string

	// Field is the field name for <field_name>.
	Field string

	// Unit is the unit label for <unit>.
	Unit string

	// Value is the rendered field value for <field_value>. Only substituted
	// when HasValue is true; autodiscovery expansion describes a field's
	// existence, not a live reading, and leaves <field_value> untouched.
	Value string

	// HasValue enables <field_value> substitution.
	HasValue bool
}

// lookup resolves one placeholder name.
func (v Values) lookup(name string) (string, bool) {
	switch name {
	case "circuit", "circuit_name":
		return v.Circuit, true
	case "field_name":
		return v.Field, true
	case "unit":
		return v.Unit, true
	case "field_value":
		if v.HasValue {
			return v.Value, true
		}
		return "", false
	default:
		return "", false
	}
}

// Expand substitutes the fixed placeholder vocabulary into a template.
//
// Substitution is a single left-to-right pass over the template. Substituted
// text is never re-scanned, so a field value containing angle-bracket text
// is not re-expanded. Unrecognised placeholders, and a lone "<" without a
// closing ">", pass through verbatim; profiles may intentionally contain
// literal angle-bracket text.
func Expand(template string, v Values) string {
	if !strings.ContainsRune(template, '<') {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))

	i := 0
	for i < len(template) {
		c := template[i]
		if c != '<' {
			b.WriteByte(c)
			i++
			continue
		}
		end := strings.IndexByte(template[i:], '>')
		if end < 0 {
			b.WriteString(template[i:])
			break
		}
		if repl, ok := v.lookup(template[i+1 : i+end]); ok {
			b.WriteString(repl)
		} else {
			b.WriteString(template[i : i+end+1])
		}
		i += end + 1
	}
	return b.String()
}

// FormatValue renders a decoded value in a stable numeric textual form:
// the shortest decimal representation that round-trips, without exponent
// notation for the magnitudes telegrams produce. Integer-valued results
// render without a fractional part (12, not 12.000000).
func FormatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
