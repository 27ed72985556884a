package schema

import (
	"fmt"
	"slices"
	"strings"
)

// Kind tags the shape a Contract describes.
type Kind string

const (
	KindAny     Kind = "any"
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindEnum    Kind = "enum"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	KindRecord  Kind = "record"
)

// Fields maps object field names to their contracts.
type Fields map[string]*Contract

// Contract is a runtime description of a value's required shape.
//
// Contracts are immutable once built: modifiers such as Optional and
// WithDefault return a modified copy. A nil *Contract accepts any value.
type Contract struct {
	kind        Kind
	fields      Fields
	elem        *Contract
	values      []string
	optional    bool
	def         any
	hasDefault  bool
	description string
}

func Any() *Contract     { return &Contract{kind: KindAny} }
func String() *Contract  { return &Contract{kind: KindString} }
func Number() *Contract  { return &Contract{kind: KindNumber} }
func Integer() *Contract { return &Contract{kind: KindInteger} }
func Boolean() *Contract { return &Contract{kind: KindBoolean} }

// Enum describes a string restricted to the given values.
func Enum(values ...string) *Contract {
	return &Contract{kind: KindEnum, values: slices.Clone(values)}
}

// Array describes a list whose elements all satisfy elem.
func Array(elem *Contract) *Contract {
	return &Contract{kind: KindArray, elem: elem}
}

// Object describes a string-keyed map with the given named fields. Keys not
// declared in fields are stripped during validation.
func Object(fields Fields) *Contract {
	copied := make(Fields, len(fields))
	for name, c := range fields {
		copied[name] = c
	}
	return &Contract{kind: KindObject, fields: copied}
}

// Record describes a string-keyed map with arbitrary keys whose values all
// satisfy elem.
func Record(elem *Contract) *Contract {
	return &Contract{kind: KindRecord, elem: elem}
}

func (c *Contract) clone() *Contract {
	cp := *c
	return &cp
}

// Optional returns a copy of c that also accepts an absent value.
func (c *Contract) Optional() *Contract {
	cp := c.clone()
	cp.optional = true
	return cp
}

// WithDefault returns a copy of c that substitutes v when the value is absent.
func (c *Contract) WithDefault(v any) *Contract {
	cp := c.clone()
	cp.def = v
	cp.hasDefault = true
	return cp
}

// Describe returns a copy of c carrying a human readable description.
func (c *Contract) Describe(description string) *Contract {
	cp := c.clone()
	cp.description = description
	return cp
}

func (c *Contract) Kind() Kind {
	if c == nil {
		return KindAny
	}
	return c.kind
}

func (c *Contract) Description() string {
	if c == nil {
		return ""
	}
	return c.description
}

// Field returns the contract of a named object field.
func (c *Contract) Field(name string) (*Contract, bool) {
	if c == nil || c.kind != KindObject {
		return nil, false
	}
	f, ok := c.fields[name]
	return f, ok
}

// FieldNames returns the declared object field names in sorted order.
func (c *Contract) FieldNames() []string {
	if c == nil || c.kind != KindObject {
		return nil
	}
	names := make([]string, 0, len(c.fields))
	for name := range c.fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Elem returns the element contract of an array or record.
func (c *Contract) Elem() *Contract {
	if c == nil {
		return nil
	}
	return c.elem
}

// Values returns the allowed values of an enum.
func (c *Contract) Values() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.values)
}

// IsOptional reports whether an absent value satisfies c, either because it
// is optional or because it carries a default.
func (c *Contract) IsOptional() bool {
	return c == nil || c.optional || c.hasDefault
}

// Default returns the default value and whether one is set.
func (c *Contract) Default() (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.def, c.hasDefault
}

// String renders c in a compact, single-line notation, e.g.
// object{content:string, type:enum(article|blog|social)="article"}.
func (c *Contract) String() string {
	if c == nil {
		return "any"
	}

	var b strings.Builder
	switch c.kind {
	case KindEnum:
		b.WriteString("enum(" + strings.Join(c.values, "|") + ")")
	case KindArray:
		b.WriteString("array<" + c.elem.String() + ">")
	case KindRecord:
		b.WriteString("record<" + c.elem.String() + ">")
	case KindObject:
		b.WriteString("object{")
		for i, name := range c.FieldNames() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(name + ":" + c.fields[name].String())
		}
		b.WriteString("}")
	default:
		b.WriteString(string(c.kind))
	}

	if c.hasDefault {
		fmt.Fprintf(&b, "=%q", fmt.Sprint(c.def))
	} else if c.optional {
		b.WriteString("?")
	}
	return b.String()
}
