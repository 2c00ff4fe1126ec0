package ast

// TypeKind discriminates type annotations.
type TypeKind int

const (
	TypeString TypeKind = iota
	TypeNumber
	TypeBoolean
	TypeArray  // untyped `array`
	TypeObject // untyped `object`
	TypeAny
	TypeArrayOf // `T[]`
	TypeNamed   // struct or enum reference, resolved lazily
	TypeInline  // inline object field list, used in output schemas
)

// TypeRef is a type annotation attached to parameters, returns, and struct
// fields. Named references may point at structs or enums declared later in
// the program; they are resolved at first use.
type TypeRef struct {
	Kind     TypeKind
	Name     string // for TypeNamed
	Elem     *TypeRef
	Fields   []StructField // for TypeInline
	Position Pos
}

var builtinTypeNames = map[string]TypeKind{
	"string":  TypeString,
	"number":  TypeNumber,
	"boolean": TypeBoolean,
	"array":   TypeArray,
	"object":  TypeObject,
	"any":     TypeAny,
}

// BuiltinType resolves a builtin type name, reporting whether it is one.
func BuiltinType(name string) (TypeKind, bool) {
	k, ok := builtinTypeNames[name]
	return k, ok
}

// String renders the annotation the way it is written in source.
func (t *TypeRef) String() string {
	if t == nil {
		return "any"
	}
	switch t.Kind {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	case TypeAny:
		return "any"
	case TypeArrayOf:
		return t.Elem.String() + "[]"
	case TypeNamed:
		return t.Name
	case TypeInline:
		return "object"
	default:
		return "any"
	}
}
