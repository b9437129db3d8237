package shape

import "strings"

// Attrs is a namespaced key/value attribute bag, attached to a Shape or
// Variant. Lookup of a missing key returns ("", false) — absence is never
// an error (§4.1).
type Attrs map[string]string

// Get returns the raw string value for key, and whether it was present.
func (a Attrs) Get(key string) (string, bool) {
	v, ok := a[key]
	return v, ok
}

// Bool returns whether key is present with no value or the literal value
// "true" (struct-tag boolean flags like `flatten` or `untagged`).
func (a Attrs) Bool(key string) bool {
	v, ok := a[key]
	return ok && (v == "" || v == "true")
}

// FieldAttrs is the parsed, typed form of the attribute groups in the
// field-attribute table (§3.2). DeserializeOnly fields (alias) only affect
// reads; SerializeOnly fields (skip_serializing_if) only affect writes.
type FieldAttrs struct {
	// Naming
	Rename    string
	Aliases   []string
	RenameAll string // propagated down from the parent struct's attribute

	// Missing-value policy
	HasDefault       bool
	DefaultFromFn    string // name of a zero-arg function providing the default, if not the zero value
	SkipSerializeIf  string // name of a predicate method/function

	// Inclusion
	Skip              bool
	SkipSerializing   bool
	SkipDeserializing bool

	// Structural
	Flatten     bool
	Transparent bool

	// Enum control (meaningful when the field's own shape is an enum)
	Tag      string
	Content  string
	Untagged bool
	Other    bool

	// Validation / proxy
	Invariants   []string
	Proxy        string
	FormatProxies []string

	// Format-tagged placement hints, namespaced e.g. "xml" -> "attribute".
	FormatTags map[string]string

	// Metadata fields are excluded from structural hashing and diffing
	// (§3.1, §9).
	IsMetadata bool
}

// parseFacetTag parses one struct tag value (the content of a `facet:"..."`
// tag) into FieldAttrs. Grammar: comma-separated options; the first
// segment, when it has no '=' and isn't a known boolean flag, is treated as
// the rename value, matching the "first segment is the name" convention
// _examples/anujdecoder-Jaal/schemabuilder/reflect.go uses for its `graphql`
// struct tag.
func parseFacetTag(tag string) FieldAttrs {
	var fa FieldAttrs
	if tag == "" {
		return fa
	}

	parts := strings.Split(tag, ",")
	nameConsumed := false
	for i, raw := range parts {
		opt := strings.TrimSpace(raw)
		if opt == "" {
			continue
		}

		if i == 0 && !strings.Contains(opt, "=") && !isKnownFlag(opt) {
			fa.Rename = opt
			nameConsumed = true
			continue
		}
		_ = nameConsumed

		key, val, hasVal := strings.Cut(opt, "=")
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		switch key {
		case "rename":
			fa.Rename = val
		case "alias":
			fa.Aliases = append(fa.Aliases, val)
		case "rename_all":
			fa.RenameAll = val
		case "default":
			fa.HasDefault = true
			if hasVal {
				fa.DefaultFromFn = val
			}
		case "skip_serializing_if":
			fa.SkipSerializeIf = val
		case "skip":
			fa.Skip = true
		case "skip_serializing":
			fa.SkipSerializing = true
		case "skip_deserializing":
			fa.SkipDeserializing = true
		case "flatten":
			fa.Flatten = true
		case "transparent":
			fa.Transparent = true
		case "tag":
			fa.Tag = val
		case "content":
			fa.Content = val
		case "untagged":
			fa.Untagged = true
		case "other":
			fa.Other = true
		case "invariant":
			fa.Invariants = append(fa.Invariants, val)
		case "proxy":
			fa.Proxy = val
		case "format_proxy":
			fa.FormatProxies = append(fa.FormatProxies, val)
		case "metadata":
			fa.IsMetadata = true
		default:
			if strings.Contains(key, "::") {
				if fa.FormatTags == nil {
					fa.FormatTags = map[string]string{}
				}
				fa.FormatTags[key] = val
			}
		}
	}

	return fa
}

func isKnownFlag(s string) bool {
	switch s {
	case "skip", "skip_serializing", "skip_deserializing", "flatten",
		"transparent", "untagged", "other", "metadata", "default":
		return true
	default:
		return false
	}
}

// EffectiveName returns the serialized name for a field: an explicit
// rename wins outright, otherwise rename_all is applied to the Go field
// name (§3.2).
func (fa FieldAttrs) EffectiveName(goName string) string {
	if fa.Rename != "" {
		return fa.Rename
	}
	return applyRenameAll(goName, fa.RenameAll)
}
