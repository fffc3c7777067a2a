// Package record models semi-structured input as a tagged-variant tree.
//
// Every value is one of three node kinds: Scalar (string, number, boolean,
// null), Object (ordered field list), or List (ordered elements). The
// flattener dispatches on this closed set instead of probing runtime types,
// and the decoder guarantees the tree is finite (standard JSON parsing cannot
// produce cycles).
package record

// Kind discriminates the three node variants.
type Kind uint8

const (
	KindScalar Kind = iota
	KindObject
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// ScalarKind discriminates terminal value types.
type ScalarKind uint8

const (
	ScalarNull ScalarKind = iota
	ScalarString
	ScalarNumber
	ScalarBool
)

// Scalar is a terminal value. Numbers keep their original decimal text so
// encoding round-trips without float precision loss.
type Scalar struct {
	Kind ScalarKind
	Str  string
	Num  string
	Bool bool
}

// Null returns the null scalar.
func Null() Scalar { return Scalar{Kind: ScalarNull} }

// String returns a string scalar.
func String(v string) Scalar { return Scalar{Kind: ScalarString, Str: v} }

// Number returns a numeric scalar from its canonical decimal text.
func Number(text string) Scalar { return Scalar{Kind: ScalarNumber, Num: text} }

// Bool returns a boolean scalar.
func Bool(v bool) Scalar { return Scalar{Kind: ScalarBool, Bool: v} }

// IsNull reports whether the scalar is the null value.
func (s Scalar) IsNull() bool { return s.Kind == ScalarNull }

// Encode renders the scalar with the fixed textual encoding used for tabular
// output: strings as-is, numbers in their canonical decimal form, booleans as
// true/false, null as the empty field.
func (s Scalar) Encode() string {
	switch s.Kind {
	case ScalarString:
		return s.Str
	case ScalarNumber:
		return s.Num
	case ScalarBool:
		if s.Bool {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// Equal reports whether two scalars carry the same value.
func (s Scalar) Equal(o Scalar) bool {
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case ScalarString:
		return s.Str == o.Str
	case ScalarNumber:
		return s.Num == o.Num
	case ScalarBool:
		return s.Bool == o.Bool
	default:
		return true
	}
}

// Field is one entry of an Object node. Order is preserved from the input.
type Field struct {
	Name  string
	Value *Node
}

// Node is one value in the record tree. Exactly the fields matching Kind are
// meaningful: Scalar for KindScalar, Fields for KindObject, Elems for KindList.
type Node struct {
	Kind   Kind
	Scalar Scalar
	Fields []Field
	Elems  []*Node
}

// NewScalar wraps a scalar value in a node.
func NewScalar(s Scalar) *Node { return &Node{Kind: KindScalar, Scalar: s} }

// NewObject builds an object node from ordered fields.
func NewObject(fields ...Field) *Node { return &Node{Kind: KindObject, Fields: fields} }

// NewList builds a list node from ordered elements.
func NewList(elems ...*Node) *Node { return &Node{Kind: KindList, Elems: elems} }

// Depth returns the maximum nesting depth of the tree, with scalars at depth
// zero. The flattener terminates in at most Depth passes.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	switch n.Kind {
	case KindObject:
		max := 0
		for _, f := range n.Fields {
			if d := f.Value.Depth(); d > max {
				max = d
			}
		}
		return max + 1
	case KindList:
		max := 0
		for _, e := range n.Elems {
			if d := e.Depth(); d > max {
				max = d
			}
		}
		return max + 1
	default:
		return 0
	}
}

// Lookup returns the value of a named object field, or nil when absent or the
// node is not an object.
func (n *Node) Lookup(name string) *Node {
	if n == nil || n.Kind != KindObject {
		return nil
	}
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}
