package container

import "github.com/wippyai/ctf"

// Tag namespaces for name lookup. Struct, union, and enum tags each live
// in their own space; every other named kind shares the identifier space.
type nameSpace uint8

const (
	spaceNames nameSpace = iota
	spaceStructs
	spaceUnions
	spaceEnums
)

func spaceForKind(k ctf.Kind) nameSpace {
	switch k {
	case ctf.KindStruct:
		return spaceStructs
	case ctf.KindUnion:
		return spaceUnions
	case ctf.KindEnum:
		return spaceEnums
	case ctf.KindForward:
		// resolved per tag kind by the caller, never reached
		return spaceNames
	default:
		return spaceNames
	}
}

type nameKey struct {
	space nameSpace
	name  string
}

// dynType is one uncommitted type definition. Reference ids (ref, member
// types, argument types) are stored as global ids so they remain valid
// across the parent boundary.
type dynType struct {
	index  uint32
	kind   ctf.Kind
	name   string
	isRoot bool
	size   uint64

	ref     ctf.TypeID // pointer, typedef, qualifiers, function return
	tag     ctf.Kind   // forward: the tag kind being declared
	enc     ctf.Encoding
	arr     ctf.ArrayInfo
	slice   ctf.SliceInfo
	args    []ctf.TypeID
	members []ctf.MemberInfo
	enums   []ctf.Enumerator
}

// space returns the tag namespace the definition's name lives in.
func (dt *dynType) space() nameSpace {
	if dt.kind == ctf.KindForward {
		return spaceForKind(dt.tag)
	}
	return spaceForKind(dt.kind)
}

// dynVar is one uncommitted variable binding, stamped with the snapshot
// epoch it was created in so Rollback can discard it.
type dynVar struct {
	name  string
	typ   ctf.TypeID
	epoch uint64
}

// overlay holds uncommitted definitions in three consistent views: the
// canonical insertion-ordered list, an id index, and a name index where
// the newest definition of a name wins. Every mutation updates all views
// before returning.
type overlay struct {
	types  []*dynType
	byID   map[uint32]*dynType
	byName map[nameKey]*dynType

	vars      []*dynVar
	varByName map[string]*dynVar
}

func newOverlay() overlay {
	return overlay{
		byID:      make(map[uint32]*dynType),
		byName:    make(map[nameKey]*dynType),
		varByName: make(map[string]*dynVar),
	}
}

// insert adds a definition to all views. Hidden (non-root) and anonymous
// definitions stay out of the name index, matching how the static index
// treats them.
func (o *overlay) insert(dt *dynType) {
	o.types = append(o.types, dt)
	o.byID[dt.index] = dt
	if dt.name != "" && dt.isRoot {
		o.byName[nameKey{dt.space(), dt.name}] = dt
	}
}

func (o *overlay) lookupID(index uint32) *dynType {
	return o.byID[index]
}

func (o *overlay) lookupName(space nameSpace, name string) *dynType {
	return o.byName[nameKey{space, name}]
}

// remove drops a definition from all views. If an older definition of the
// same name survives, it is restored in the name index.
func (o *overlay) remove(dt *dynType) {
	for i, t := range o.types {
		if t == dt {
			o.types = append(o.types[:i], o.types[i+1:]...)
			break
		}
	}
	delete(o.byID, dt.index)

	if dt.name == "" || !dt.isRoot {
		return
	}
	key := nameKey{dt.space(), dt.name}
	if o.byName[key] != dt {
		return
	}
	delete(o.byName, key)
	for i := len(o.types) - 1; i >= 0; i-- {
		t := o.types[i]
		if t.name == dt.name && t.isRoot && t.space() == key.space {
			o.byName[key] = t
			return
		}
	}
}

// rollbackTypes discards every definition whose index is greater than
// lastID, newest first so name restoration sees a consistent list.
func (o *overlay) rollbackTypes(lastID uint32) {
	for i := len(o.types) - 1; i >= 0; i-- {
		if o.types[i].index > lastID {
			o.remove(o.types[i])
		}
	}
}

func (o *overlay) insertVar(dv *dynVar) {
	o.vars = append(o.vars, dv)
	o.varByName[dv.name] = dv
}

func (o *overlay) lookupVar(name string) *dynVar {
	return o.varByName[name]
}

// rollbackVars discards every variable created after the given epoch.
func (o *overlay) rollbackVars(epoch uint64) {
	kept := o.vars[:0]
	for _, dv := range o.vars {
		if dv.epoch > epoch {
			delete(o.varByName, dv.name)
			continue
		}
		kept = append(kept, dv)
	}
	o.vars = kept
}

// clear empties the overlay after a successful commit.
func (o *overlay) clear() {
	o.types = nil
	o.vars = nil
	o.byID = make(map[uint32]*dynType)
	o.byName = make(map[nameKey]*dynType)
	o.varByName = make(map[string]*dynVar)
}
