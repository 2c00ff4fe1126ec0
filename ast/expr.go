package ast

// StringLit is a string literal, possibly interpolated. Parts alternate
// between raw text and embedded expressions in source order.
type StringLit struct {
	Parts    []StringPart
	Position Pos
}

func (*StringLit) exprNode()  {}
func (e *StringLit) Pos() Pos { return e.Position }

// Static returns the literal text when the string has no interpolation.
func (e *StringLit) Static() (string, bool) {
	if len(e.Parts) == 0 {
		return "", true
	}
	if len(e.Parts) == 1 && e.Parts[0].Expr == nil {
		return e.Parts[0].Text, true
	}
	return "", false
}

// StringPart is either raw text (Expr nil) or an embedded expression.
type StringPart struct {
	Text string
	Expr Expression
}

// NumberLit is a numeric literal. All Strand numbers are float64.
type NumberLit struct {
	Value    float64
	Position Pos
}

func (*NumberLit) exprNode()  {}
func (e *NumberLit) Pos() Pos { return e.Position }

// BoolLit is `true` or `false`.
type BoolLit struct {
	Value    bool
	Position Pos
}

func (*BoolLit) exprNode()  {}
func (e *BoolLit) Pos() Pos { return e.Position }

// NullLit is `null`.
type NullLit struct{ Position Pos }

func (*NullLit) exprNode()  {}
func (e *NullLit) Pos() Pos { return e.Position }

// Ident references a binding by name.
type Ident struct {
	Name     string
	Position Pos
}

func (*Ident) exprNode()  {}
func (e *Ident) Pos() Pos { return e.Position }

// ArrayLit is `[a, b, c]`.
type ArrayLit struct {
	Elements []Expression
	Position Pos
}

func (*ArrayLit) exprNode()  {}
func (e *ArrayLit) Pos() Pos { return e.Position }

// ObjectLit is `{k: v, ...}` with insertion order preserved.
type ObjectLit struct {
	Keys     []string
	Values   []Expression
	Position Pos
}

func (*ObjectLit) exprNode()  {}
func (e *ObjectLit) Pos() Pos { return e.Position }

// LambdaExpr is `(x, y) => expr` or `(x) => { block }`.
type LambdaExpr struct {
	Params   []string
	Expr     Expression // one of Expr/Body is set
	Body     *Block
	Position Pos
}

func (*LambdaExpr) exprNode()  {}
func (e *LambdaExpr) Pos() Pos { return e.Position }

// BinaryExpr applies Op to Left and Right. `&&` and `||` short-circuit.
type BinaryExpr struct {
	Op       string
	Left     Expression
	Right    Expression
	Position Pos
}

func (*BinaryExpr) exprNode()  {}
func (e *BinaryExpr) Pos() Pos { return e.Position }

// UnaryExpr applies `!` or `-` to its operand.
type UnaryExpr struct {
	Op       string
	Operand  Expression
	Position Pos
}

func (*UnaryExpr) exprNode()  {}
func (e *UnaryExpr) Pos() Pos { return e.Position }

// CallExpr invokes a callable: function, tool, lambda, agent, or enum
// constructor.
type CallExpr struct {
	Callee   Expression
	Args     []Expression
	Position Pos
}

func (*CallExpr) exprNode()  {}
func (e *CallExpr) Pos() Pos { return e.Position }

// MethodCallExpr invokes a method on a receiver, e.g. `xs.map(f)` or
// `Agent.run()`.
type MethodCallExpr struct {
	Receiver Expression
	Method   string
	Args     []Expression
	Position Pos
}

func (*MethodCallExpr) exprNode()  {}
func (e *MethodCallExpr) Pos() Pos { return e.Position }

// MemberExpr accesses a named member: `obj.field` or `Enum.Variant`.
type MemberExpr struct {
	Receiver Expression
	Member   string
	Position Pos
}

func (*MemberExpr) exprNode()  {}
func (e *MemberExpr) Pos() Pos { return e.Position }

// IndexExpr accesses `recv[index]`.
type IndexExpr struct {
	Receiver Expression
	Index    Expression
	Position Pos
}

func (*IndexExpr) exprNode()  {}
func (e *IndexExpr) Pos() Pos { return e.Position }

// MatchExpr matches a scrutinee against arms in order.
type MatchExpr struct {
	Subject  Expression
	Arms     []MatchArm
	Position Pos
}

func (*MatchExpr) exprNode()  {}
func (e *MatchExpr) Pos() Pos { return e.Position }

// MatchArm pairs a pattern with an expression or block body.
type MatchArm struct {
	Pattern  MatchPattern
	Expr     Expression // one of Expr/Body is set
	Body     *Block
	Position Pos
}

// MatchPattern is one of: enum variant (with payload bindings), a literal, or
// the wildcard `_`.
type MatchPattern struct {
	// EnumName and Variant are set for `Enum.Variant(bind1, bind2)` patterns.
	EnumName string
	Variant  string
	Bindings []string
	// Literal is set for literal patterns.
	Literal Expression
	// Wildcard reports a `_` pattern.
	Wildcard bool
	Position Pos
}
