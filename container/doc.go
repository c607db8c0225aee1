// Package container implements the CTF type dictionary: an in-memory
// graph of type descriptions that can be opened read-only from an encoded
// buffer, built up incrementally in a writable overlay, and committed back
// to the compact binary layout.
//
// A Container owns four cooperating pieces:
//
//   - the parsed immutable buffer and its derived indices: a record
//     offset table, name maps partitioned by tag namespace (struct,
//     union, enum, other), and a pointer-to table;
//   - a dynamic overlay holding uncommitted type and variable
//     definitions, triple-indexed by insertion order, id, and name;
//   - an optional parent container sharing the low half of the id
//     namespace, attached with Import;
//   - snapshot bookkeeping so a run of additions can be rolled back
//     until Commit folds the overlay into a fresh immutable buffer.
//
// Lookups consult the overlay first (newest definition wins), then the
// static index, then the parent. Mutations touch only the overlay, so a
// failed operation never damages committed state; Commit itself is
// all-or-nothing.
package container
