// Package ast defines the syntax tree for Strand programs: top-level
// declarations (agents, tools, functions, structs, enums, parallel blocks),
// statements, expressions, and type annotations.
//
// The tree is produced by the parser and never mutated afterwards; the
// evaluator and the agent engine share it freely across goroutines.
package ast
