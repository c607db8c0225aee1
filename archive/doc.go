// Package archive bundles multiple type dictionaries into a single file
// keyed by member name, typically one member per compilation unit plus a
// shared parent.
//
// Members are opened lazily and kept in a small LRU cache, so walking a
// large archive touches only the dictionaries actually asked for. When a
// member names a parent dictionary that is itself an archive member, Get
// attaches it automatically.
package archive
