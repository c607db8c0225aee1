package container

import (
	"strings"

	"github.com/wippyai/ctf"
	"github.com/wippyai/ctf/errors"
	"github.com/wippyai/ctf/format"
)

// LookupByName resolves a C type declaration to a type id. The accepted
// grammar is a name with an optional struct, union, or enum tag prefix,
// followed by any number of '*' pointer derivations:
//
//	"int", "struct proc", "union sigval *", "foo_t **"
//
// The overlay is consulted before the static index, so the newest
// definition of a name wins, and the parent is consulted last.
func (c *Container) LookupByName(decl string) (ctf.TypeID, error) {
	if err := c.checkClosed(errors.PhaseLookup); err != nil {
		return ctf.NoType, err
	}

	stars := strings.Count(decl, "*")
	fields := strings.Fields(strings.ReplaceAll(decl, "*", " "))

	space := spaceNames
	var name string
	switch len(fields) {
	case 1:
		name = fields[0]
	case 2:
		switch fields[0] {
		case "struct":
			space = spaceStructs
		case "union":
			space = spaceUnions
		case "enum":
			space = spaceEnums
		default:
			return ctf.NoType, errors.New(errors.PhaseLookup, errors.KindParse).
				Detail("unrecognized declaration %q", decl).
				Build()
		}
		name = fields[1]
	default:
		return ctf.NoType, errors.New(errors.PhaseLookup, errors.KindParse).
			Detail("unrecognized declaration %q", decl).
			Build()
	}

	id, err := c.lookupName(space, name)
	if err != nil {
		return ctf.NoType, err
	}
	for ; stars > 0; stars-- {
		id, err = c.PointerTo(id)
		if err != nil {
			return ctf.NoType, err
		}
	}
	return id, nil
}

// lookupName resolves a bare name within one tag namespace: overlay
// first, then the static index, then the parent.
func (c *Container) lookupName(space nameSpace, name string) (ctf.TypeID, error) {
	if dt := c.ov.lookupName(space, name); dt != nil {
		return c.globalID(dt.index), nil
	}
	if c.static != nil {
		if index, ok := c.static.nameMap(space)[name]; ok {
			return c.globalID(index), nil
		}
	}
	if c.parent != nil {
		return c.parent.lookupName(space, name)
	}
	return ctf.NoType, errors.NotFound(errors.PhaseLookup, "type", name)
}

// PointerTo finds an existing pointer type whose referent is id. Dynamic
// pointers are searched newest first, then the static pointer table, then
// the parent when id lives in its range. No pointer is created.
func (c *Container) PointerTo(id ctf.TypeID) (ctf.TypeID, error) {
	if err := c.checkClosed(errors.PhaseLookup); err != nil {
		return ctf.NoType, err
	}
	if _, _, err := c.resolveID(errors.PhaseLookup, id); err != nil {
		return ctf.NoType, err
	}

	for i := len(c.ov.types) - 1; i >= 0; i-- {
		dt := c.ov.types[i]
		if dt.kind == ctf.KindPointer && dt.ref == id {
			return c.globalID(dt.index), nil
		}
	}
	if c.static != nil {
		if ctf.IsParentID(id, c.parmax) {
			if index, ok := c.static.ptrToParent[id]; ok {
				return c.globalID(index), nil
			}
		} else if index := ctf.TypeToIndex(id, c.parmax); index <= c.static.typemax {
			if ptr := c.static.ptrtab[index]; ptr != 0 {
				return c.globalID(ptr), nil
			}
		}
	}
	if c.parent != nil && ctf.IsParentID(id, c.parmax) {
		return c.parent.PointerTo(id)
	}
	return ctf.NoType, errors.New(errors.PhaseLookup, errors.KindNotFound).
		Detail("no pointer to type %d", id).
		Build()
}

// LookupVariable resolves a variable name to its type id, consulting the
// overlay, then the sorted static variable section, then the parent.
func (c *Container) LookupVariable(name string) (ctf.TypeID, error) {
	if err := c.checkClosed(errors.PhaseLookup); err != nil {
		return ctf.NoType, err
	}
	if dv := c.ov.lookupVar(name); dv != nil {
		return dv.typ, nil
	}
	if c.static != nil {
		typ, ok, err := c.static.lookupVar(name)
		if err != nil {
			return ctf.NoType, err
		}
		if ok {
			return typ, nil
		}
	}
	if c.parent != nil {
		return c.parent.LookupVariable(name)
	}
	return ctf.NoType, errors.NotFound(errors.PhaseLookup, "variable", name)
}

// LookupBySymbol resolves a symbol-table index to a type id through the
// translation list attached at Open. Slots holding zero mean the symbol
// carries no type information. The parent is consulted for indices past
// this container's list, mirroring name lookup.
func (c *Container) LookupBySymbol(symidx uint32) (ctf.TypeID, error) {
	if err := c.checkClosed(errors.PhaseLookup); err != nil {
		return ctf.NoType, err
	}
	if len(c.symtab.Data) == 0 {
		if c.parent != nil {
			return c.parent.LookupBySymbol(symidx)
		}
		return ctf.NoType, errors.Unsupported(errors.PhaseLookup,
			"no symbol translation list attached")
	}
	ss := format.NewSymSection(c.symtab.Data)
	if int(symidx) >= ss.Count() {
		return ctf.NoType, errors.New(errors.PhaseLookup, errors.KindNotFound).
			Detail("symbol index %d past translation list of %d", symidx, ss.Count()).
			Build()
	}
	raw, err := ss.TypeAt(int(symidx))
	if err != nil {
		return ctf.NoType, err
	}
	if raw == uint32(ctf.NoType) {
		return ctf.NoType, errors.New(errors.PhaseLookup, errors.KindNotFound).
			Detail("symbol index %d has no type information", symidx).
			Build()
	}
	id := ctf.TypeID(raw)
	if _, _, err := c.resolveID(errors.PhaseLookup, id); err != nil {
		return ctf.NoType, err
	}
	return id, nil
}

// lookupVar binary-searches the name-sorted static variable section.
func (st *staticState) lookupVar(name string) (ctf.TypeID, bool, error) {
	lo, hi := 0, st.vars.Count()
	for lo < hi {
		mid := (lo + hi) / 2
		entry, err := st.vars.EntryAt(mid)
		if err != nil {
			return ctf.NoType, false, err
		}
		midName, err := st.strtab.Lookup(entry.Name)
		if err != nil {
			return ctf.NoType, false, err
		}
		switch {
		case midName == name:
			return ctf.TypeID(entry.Type), true, nil
		case midName < name:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return ctf.NoType, false, nil
}

func (st *staticState) varAt(i int) (ctf.VarInfo, error) {
	entry, err := st.vars.EntryAt(i)
	if err != nil {
		return ctf.VarInfo{}, err
	}
	name, err := st.strtab.Lookup(entry.Name)
	if err != nil {
		return ctf.VarInfo{}, err
	}
	return ctf.VarInfo{Name: name, Type: ctf.TypeID(entry.Type)}, nil
}
