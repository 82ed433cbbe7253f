package formula

import (
	"strconv"
	"strings"
)

// Node is an expression tree node. The set of implementations is closed:
// *Literal, *VariableRef, *BinaryOp and *UnaryOp.
type Node interface {
	// Pos is the byte offset of the token that defines the node.
	Pos() int
	// String renders the node fully parenthesised.
	String() string
	node()
}

// Literal is a numeric constant.
type Literal struct {
	Value  float64
	Offset int
}

// VariableRef is an identifier resolved against Variables at evaluation time.
type VariableRef struct {
	Name   string
	Offset int
}

// BinaryOp applies Op to Left and Right. Offset is the operator position.
type BinaryOp struct {
	Op     Operator
	Left   Node
	Right  Node
	Offset int
}

// UnaryOp is a negation. Op is always OpSub.
type UnaryOp struct {
	Op      Operator
	Operand Node
	Offset  int
}

func (n *Literal) Pos() int     { return n.Offset }
func (n *VariableRef) Pos() int { return n.Offset }
func (n *BinaryOp) Pos() int    { return n.Offset }
func (n *UnaryOp) Pos() int     { return n.Offset }

func (*Literal) node()     {}
func (*VariableRef) node() {}
func (*BinaryOp) node()    {}
func (*UnaryOp) node()     {}

func (n *Literal) String() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

func (n *VariableRef) String() string {
	return n.Name
}

func (n *BinaryOp) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(n.Left.String())
	sb.WriteByte(' ')
	sb.WriteString(n.Op.String())
	sb.WriteByte(' ')
	sb.WriteString(n.Right.String())
	sb.WriteByte(')')
	return sb.String()
}

func (n *UnaryOp) String() string {
	return "(" + n.Op.String() + n.Operand.String() + ")"
}

// Equal reports whether two trees have the same shape, values and positions.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case *Literal:
		y, ok := b.(*Literal)
		return ok && x.Value == y.Value && x.Offset == y.Offset
	case *VariableRef:
		y, ok := b.(*VariableRef)
		return ok && x.Name == y.Name && x.Offset == y.Offset
	case *BinaryOp:
		y, ok := b.(*BinaryOp)
		return ok && x.Op == y.Op && x.Offset == y.Offset &&
			Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *UnaryOp:
		y, ok := b.(*UnaryOp)
		return ok && x.Op == y.Op && x.Offset == y.Offset && Equal(x.Operand, y.Operand)
	default:
		return a == nil && b == nil
	}
}

// Identifiers returns the distinct variable names in the tree in the order
// they are evaluated.
func Identifiers(n Node) []string {
	seen := make(map[string]struct{})
	var names []string
	var walk func(Node)
	walk = func(n Node) {
		switch x := n.(type) {
		case *VariableRef:
			if _, ok := seen[x.Name]; !ok {
				seen[x.Name] = struct{}{}
				names = append(names, x.Name)
			}
		case *BinaryOp:
			walk(x.Left)
			walk(x.Right)
		case *UnaryOp:
			walk(x.Operand)
		}
	}
	walk(n)
	return names
}
