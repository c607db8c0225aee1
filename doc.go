// Package ctf provides a Go implementation of the Compact Type Format,
// a binary encoding of language-level data-type descriptions extracted
// from or destined for object files.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	ctf/             Root package with type identifiers, kinds, data models
//	├── container/   The type dictionary: open, build, look up, commit
//	├── format/      Wire format encoding and decoding primitives
//	├── render/      C declaration rendering from type chains
//	├── archive/     Named collections of dictionaries over one backing buffer
//	└── errors/      Structured error types for debugging
//
// # Quick Start
//
// Build a dictionary and serialize it:
//
//	d := container.NewDict(ctf.ModelLP64)
//	intID, _ := d.AddInteger("int", ctf.Encoding{Format: ctf.IntSigned, Bits: 32}, true)
//	ptrID, _ := d.AddPointer(intID, true)
//	sID, _ := d.AddStruct("point", true)
//	d.AddMember(sID, "x", intID)
//	d.AddMember(sID, "p", ptrID)
//	if err := d.Commit(); err != nil {
//	    log.Fatal(err)
//	}
//	buf := d.Bytes()
//
// Reopen it elsewhere and render a declaration:
//
//	d2, _ := container.Open(ctf.Section{Data: buf})
//	id, _ := d2.LookupByName("struct point")
//	decl, _ := render.Declaration(d2, id, "p")
//	fmt.Println(decl) // "struct point p"
//
// # Parent and Child Dictionaries
//
// Many translation units can share one base dictionary: a child container
// attached to a parent resolves identifiers at or below the parent boundary
// in the parent's namespace, and its own definitions above it. See
// (*container.Container).Import.
//
// # Thread Safety
//
// A committed container is safe for concurrent lookups and rendering from
// multiple goroutines. Mutating operations (AddXxx, Commit, Rollback) are
// single-writer and must be externally serialized.
package ctf
