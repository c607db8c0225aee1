// Package format implements the CTF wire format: the dictionary header,
// the packed type records with their kind-specific payloads, and the
// offset-addressed string table.
//
// A dictionary buffer is a fixed-width header followed by a body of three
// sections addressed by header offsets: variable entries, type records,
// and the string table. All multi-byte fields are little-endian. The body
// may be zlib-compressed as a whole, signalled by a header flag.
//
// The package is deliberately mechanical: it moves bytes and validates
// structure. Semantic rules (namespaces, parent boundaries, alignment)
// live in the container package.
package format
