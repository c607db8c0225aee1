// Package render turns type graphs into C declaration strings.
//
// A declaration is assembled by walking the reference chain of a type and
// sorting each step into one of four lexical precedence levels: base
// names, pointer derivations, array suffixes, and function suffixes.
// When the graph order conflicts with lexical precedence order, the
// conflicting level is parenthesized, which is how "int (*p)[10]"
// (pointer to array) is told apart from "int *p[10]" (array of
// pointers).
package render
