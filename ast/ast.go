package ast

// Pos is a source location, 1-indexed line and column.
type Pos struct {
	Line   int
	Column int
}

// Program is an ordered sequence of top-level declarations and statements.
// It is immutable after parsing.
type Program struct {
	Statements []Statement
}

// Statement is implemented by every top-level and block-level statement node.
type Statement interface {
	Node
	stmtNode()
}

// Expression is implemented by every expression node.
type Expression interface {
	Node
	exprNode()
}

// Node is the common interface of all AST nodes.
type Node interface {
	Pos() Pos
}

// Block is a braced statement sequence.
type Block struct {
	Statements []Statement
	Position   Pos
}

func (*Block) stmtNode()  {}
func (b *Block) Pos() Pos { return b.Position }

// AgentDecl declares a named agent.
type AgentDecl struct {
	Name               string
	SystemPrompt       Expression // required
	UserPrompt         Expression // optional default user prompt
	Model              string
	Provider           string
	Tools              []string
	MaxSteps           int // 0 means default
	Output             *OutputSchema
	OutputRetries      int // -1 means default
	RetryPrompt        string
	OutputInstructions string
	Knowledge          *KnowledgeBinding
	Position           Pos
}

func (*AgentDecl) stmtNode()  {}
func (d *AgentDecl) Pos() Pos { return d.Position }

// KnowledgeBinding configures automatic context injection for an agent.
type KnowledgeBinding struct {
	Source         Expression // evaluates to a knowledge base handle
	ChunkLimit     int        // 0 means default
	ScoreThreshold float64    // 0 means no threshold
	Position       Pos
}

// OutputSchema is either an inline field list or a reference to a struct
// declared elsewhere in the program.
type OutputSchema struct {
	StructName string // non-empty for named schemas
	Fields     []StructField
	Position   Pos
}

// Inline reports whether the schema was written inline at the agent.
func (o *OutputSchema) Inline() bool { return o.StructName == "" }

// ToolDecl declares a user-defined tool.
type ToolDecl struct {
	Name       string
	Params     []Param
	ReturnType *TypeRef
	Body       *Block
	Position   Pos
}

func (*ToolDecl) stmtNode()  {}
func (d *ToolDecl) Pos() Pos { return d.Position }

// FnDecl declares a pure function.
type FnDecl struct {
	Name       string
	Params     []Param
	ReturnType *TypeRef
	Body       *Block
	Position   Pos
}

func (*FnDecl) stmtNode()  {}
func (d *FnDecl) Pos() Pos { return d.Position }

// Param is a typed parameter.
type Param struct {
	Name     string
	Type     *TypeRef
	Position Pos
}

// StructDecl declares a named record type.
type StructDecl struct {
	Name     string
	Fields   []StructField
	Position Pos
}

func (*StructDecl) stmtNode()  {}
func (d *StructDecl) Pos() Pos { return d.Position }

// StructField is a named, typed field. Nested object fields carry their own
// field list.
type StructField struct {
	Name     string
	Type     *TypeRef
	Position Pos
}

// EnumDecl declares a named sum type.
type EnumDecl struct {
	Name     string
	Variants []EnumVariant
	Position Pos
}

func (*EnumDecl) stmtNode()  {}
func (d *EnumDecl) Pos() Pos { return d.Position }

// EnumVariant is a variant with zero or more typed payload fields.
type EnumVariant struct {
	Name     string
	Fields   []EnumField
	Position Pos
}

// EnumField is a payload field of an enum variant. The name is optional for
// positional payloads.
type EnumField struct {
	Name string
	Type *TypeRef
}

// ParallelDecl declares a named parallel block.
type ParallelDecl struct {
	Name      string
	Agents    []Expression
	TimeoutMS int64
	Position  Pos
}

func (*ParallelDecl) stmtNode()  {}
func (d *ParallelDecl) Pos() Pos { return d.Position }

// LetStmt binds a name in the enclosing scope.
type LetStmt struct {
	Name     string
	Value    Expression
	Position Pos
}

func (*LetStmt) stmtNode()  {}
func (s *LetStmt) Pos() Pos { return s.Position }

// AssignStmt rebinds an existing name.
type AssignStmt struct {
	Name     string
	Value    Expression
	Position Pos
}

func (*AssignStmt) stmtNode()  {}
func (s *AssignStmt) Pos() Pos { return s.Position }

// ExpressionStmt evaluates an expression for effect.
type ExpressionStmt struct {
	Expr     Expression
	Position Pos
}

func (*ExpressionStmt) stmtNode()  {}
func (s *ExpressionStmt) Pos() Pos { return s.Position }

// IfStmt is a conditional with an optional else branch. The else branch is
// either a *Block or another *IfStmt (else if).
type IfStmt struct {
	Condition Expression
	Then      *Block
	Else      Statement
	Position  Pos
}

func (*IfStmt) stmtNode()  {}
func (s *IfStmt) Pos() Pos { return s.Position }

// WhileStmt loops while the condition is truthy.
type WhileStmt struct {
	Condition Expression
	Body      *Block
	Position  Pos
}

func (*WhileStmt) stmtNode()  {}
func (s *WhileStmt) Pos() Pos { return s.Position }

// ForInStmt iterates an array's elements or an object's entries.
type ForInStmt struct {
	Name     string
	Iterable Expression
	Body     *Block
	Position Pos
}

func (*ForInStmt) stmtNode()  {}
func (s *ForInStmt) Pos() Pos { return s.Position }

// TryStmt runs Body and, on a raised error, binds the error object to
// CatchName inside the Catch block.
type TryStmt struct {
	Body      *Block
	CatchName string
	Catch     *Block
	Position  Pos
}

func (*TryStmt) stmtNode()  {}
func (s *TryStmt) Pos() Pos { return s.Position }

// ReturnStmt returns from the enclosing function or tool body.
type ReturnStmt struct {
	Value    Expression // nil for bare return
	Position Pos
}

func (*ReturnStmt) stmtNode()  {}
func (s *ReturnStmt) Pos() Pos { return s.Position }

// BreakStmt exits the innermost loop.
type BreakStmt struct{ Position Pos }

func (*BreakStmt) stmtNode()  {}
func (s *BreakStmt) Pos() Pos { return s.Position }

// ContinueStmt skips to the next loop iteration.
type ContinueStmt struct{ Position Pos }

func (*ContinueStmt) stmtNode()  {}
func (s *ContinueStmt) Pos() Pos { return s.Position }
