// Package parser tokenizes and parses Strand source text into an ast.Program.
//
// The parser is a recursive-descent parser with precedence climbing for
// expressions. It stops at the first syntax error and reports it with line
// and column, what it expected, and what it found. Re-parsing the same text
// always yields a structurally identical tree.
package parser
