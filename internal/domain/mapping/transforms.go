package mapping

import (
	"github.com/spf13/cast"
)

// Field transforms coerce untyped field-bag values into the scalar type
// the target side expects. Coercion is lenient: "48", 48 and 48.0 all
// convert cleanly in any direction.

// ToInt coerces the value to an int.
func ToInt(v any) any {
	return cast.ToInt(v)
}

// ToFloat coerces the value to a float64.
func ToFloat(v any) any {
	return cast.ToFloat64(v)
}

// ToString coerces the value to its string representation.
func ToString(v any) any {
	return cast.ToString(v)
}
