package shape

import (
	"strings"

	"github.com/iancoleman/strcase"
)

// applyRenameAll renders goName (an exported Go identifier, e.g. "UserId")
// under one of the rename_all conventions from the field-attribute table
// (§3.2). An unrecognized or empty convention leaves the name untouched,
// matching _examples/anujdecoder-Jaal/schemabuilder/reflect.go's makeGraphql,
// which falls back to the original identifier rather than erroring.
func applyRenameAll(goName, convention string) string {
	switch convention {
	case "":
		return goName
	case "lowercase":
		return strings.ToLower(goName)
	case "UPPERCASE":
		return strings.ToUpper(goName)
	case "snake_case":
		return strcase.ToSnake(goName)
	case "SCREAMING_SNAKE_CASE":
		return strcase.ToScreamingSnake(goName)
	case "kebab-case":
		return strcase.ToKebab(goName)
	case "SCREAMING-KEBAB-CASE":
		return strcase.ToScreamingKebab(goName)
	case "camelCase":
		return strcase.ToLowerCamel(goName)
	case "PascalCase":
		return strcase.ToCamel(goName)
	default:
		return goName
	}
}
