package frame

import (
	"fmt"
	"strings"
)

// Kind identifies one of the three value kinds the engine produces.
type Kind int

// Value kinds.
const (
	KindTable Kind = iota + 1
	KindPlan
	KindColumn
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindPlan:
		return "plan"
	case KindColumn:
		return "column"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindTable, KindPlan, KindColumn}
}

// ParseKind parses a kind name as returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table":
		return KindTable, nil
	case "plan":
		return KindPlan, nil
	case "column":
		return KindColumn, nil
	}
	return 0, fmt.Errorf("unknown kind %q (valid: table, plan, column)", s)
}

// Value is implemented by *Table, *Plan and *Column only. An operation
// declared to return Value may produce any of the three.
type Value interface {
	Kind() Kind
	frameValue() // Sealed
}

// DataType is the element type of a column.
type DataType int

// Column data types.
const (
	Int64 DataType = iota + 1
	Float64
	String
	Bool
)

// String returns the type name.
func (d DataType) String() string {
	switch d {
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case String:
		return "string"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("dtype(%d)", int(d))
	}
}

// Field describes one column of a table schema.
type Field struct {
	Name string
	Type DataType
}
