package container

import (
	"github.com/wippyai/ctf"
	"github.com/wippyai/ctf/errors"
	"github.com/wippyai/ctf/format"
)

// maxTypeDepth bounds reference-chasing loops so a corrupt buffer with a
// reference cycle cannot hang a reader.
const maxTypeDepth = 512

// typeView is resolved access to one definition, dynamic or static. For
// a static type rec and payload are valid; for a dynamic one dyn is set.
type typeView struct {
	c       *Container
	index   uint32
	dyn     *dynType
	rec     format.TypeRecord
	payload uint32
}

func (v typeView) kind() ctf.Kind {
	if v.dyn != nil {
		return v.dyn.kind
	}
	return v.rec.Kind()
}

func (v typeView) isRoot() bool {
	if v.dyn != nil {
		return v.dyn.isRoot
	}
	return v.rec.IsRoot()
}

func (v typeView) name() (string, error) {
	if v.dyn != nil {
		return v.dyn.name, nil
	}
	return v.c.static.strtab.Lookup(v.rec.Name)
}

func (v typeView) ref() ctf.TypeID {
	if v.dyn != nil {
		return v.dyn.ref
	}
	return v.rec.Ref()
}

// view validates id and returns resolved access to its definition,
// consulting the owning container's overlay before its static index.
func (c *Container) view(phase errors.Phase, id ctf.TypeID) (typeView, error) {
	owner, index, err := c.resolveID(phase, id)
	if err != nil {
		return typeView{}, err
	}
	if dt := owner.ov.lookupID(index); dt != nil {
		return typeView{c: owner, index: index, dyn: dt}, nil
	}
	if owner.static == nil || index > owner.static.typemax {
		return typeView{}, errors.InvalidID(phase, uint32(id))
	}
	rec, payload, err := owner.static.recordFor(index)
	if err != nil {
		return typeView{}, err
	}
	return typeView{c: owner, index: index, rec: rec, payload: payload}, nil
}

// Kind returns the kind of id without resolving typedefs or qualifiers.
func (c *Container) Kind(id ctf.TypeID) (ctf.Kind, error) {
	v, err := c.view(errors.PhaseLookup, id)
	if err != nil {
		return ctf.KindUnknown, err
	}
	return v.kind(), nil
}

// TypeName returns the name of id, or "" for an anonymous type.
func (c *Container) TypeName(id ctf.TypeID) (string, error) {
	v, err := c.view(errors.PhaseLookup, id)
	if err != nil {
		return "", err
	}
	return v.name()
}

// Visible reports whether id is root-visible, i.e. participates in name
// lookup.
func (c *Container) Visible(id ctf.TypeID) (bool, error) {
	v, err := c.view(errors.PhaseLookup, id)
	if err != nil {
		return false, err
	}
	return v.isRoot(), nil
}

// Reference returns the type id refers to: the pointee of a pointer, the
// aliased type of a typedef, the qualified type of a qualifier, the
// underlying type of a slice, or the return type of a function.
func (c *Container) Reference(id ctf.TypeID) (ctf.TypeID, error) {
	v, err := c.view(errors.PhaseLookup, id)
	if err != nil {
		return ctf.NoType, err
	}
	switch v.kind() {
	case ctf.KindPointer, ctf.KindTypedef, ctf.KindVolatile,
		ctf.KindConst, ctf.KindRestrict, ctf.KindFunction:
		return v.ref(), nil
	case ctf.KindSlice:
		sl, err := v.sliceInfo()
		if err != nil {
			return ctf.NoType, err
		}
		return sl.Type, nil
	}
	return ctf.NoType, errors.New(errors.PhaseLookup, errors.KindInvalidID).
		Detail("%s type %d has no referent", v.kind(), id).
		Build()
}

// ResolveType strips typedefs, qualifiers, and slices until it reaches a
// base kind, returning the underlying type id.
func (c *Container) ResolveType(id ctf.TypeID) (ctf.TypeID, error) {
	cur := id
	for depth := 0; depth < maxTypeDepth; depth++ {
		v, err := c.view(errors.PhaseLookup, cur)
		if err != nil {
			return ctf.NoType, err
		}
		switch v.kind() {
		case ctf.KindTypedef, ctf.KindVolatile, ctf.KindConst, ctf.KindRestrict:
			cur = v.ref()
		case ctf.KindSlice:
			sl, err := v.sliceInfo()
			if err != nil {
				return ctf.NoType, err
			}
			cur = sl.Type
		default:
			return cur, nil
		}
	}
	return ctf.NoType, errors.Corrupt(errors.PhaseLookup,
		"reference chain from type %d exceeds depth %d", id, maxTypeDepth)
}

func (c *Container) resolvedKind(id ctf.TypeID) (ctf.Kind, error) {
	rid, err := c.ResolveType(id)
	if err != nil {
		return ctf.KindUnknown, err
	}
	return c.Kind(rid)
}

// SizeOf returns the size of id in bytes. Functions and forward
// declarations have size zero.
func (c *Container) SizeOf(id ctf.TypeID) (uint64, error) {
	cur := id
	for depth := 0; depth < maxTypeDepth; depth++ {
		v, err := c.view(errors.PhaseLookup, cur)
		if err != nil {
			return 0, err
		}
		switch v.kind() {
		case ctf.KindInteger, ctf.KindFloat, ctf.KindStruct, ctf.KindUnion, ctf.KindEnum:
			if v.dyn != nil {
				return v.dyn.size, nil
			}
			return v.rec.Size, nil
		case ctf.KindPointer:
			return uint64(v.c.model.Pointer), nil
		case ctf.KindFunction, ctf.KindForward:
			return 0, nil
		case ctf.KindArray:
			arr, err := v.arrayInfo()
			if err != nil {
				return 0, err
			}
			elem, err := v.c.SizeOf(arr.Contents)
			if err != nil {
				return 0, err
			}
			return elem * uint64(arr.NumElems), nil
		case ctf.KindSlice:
			sl, err := v.sliceInfo()
			if err != nil {
				return 0, err
			}
			cur = sl.Type
		case ctf.KindTypedef, ctf.KindVolatile, ctf.KindConst, ctf.KindRestrict:
			cur = v.ref()
		default:
			return 0, errors.Corrupt(errors.PhaseLookup, "size of unknown kind for type %d", cur)
		}
		if v.c != c {
			return v.c.SizeOf(cur)
		}
	}
	return 0, errors.Corrupt(errors.PhaseLookup,
		"reference chain from type %d exceeds depth %d", id, maxTypeDepth)
}

// AlignOf returns the natural alignment of id in bytes under the
// container's data model.
func (c *Container) AlignOf(id ctf.TypeID) (uint64, error) {
	rid, err := c.ResolveType(id)
	if err != nil {
		return 0, err
	}
	v, err := c.view(errors.PhaseLookup, rid)
	if err != nil {
		return 0, err
	}
	model := v.c.model
	switch v.kind() {
	case ctf.KindInteger, ctf.KindFloat, ctf.KindEnum:
		size, err := c.SizeOf(rid)
		if err != nil {
			return 0, err
		}
		if size == 0 {
			return 1, nil
		}
		if size > uint64(model.Long) {
			return uint64(model.Long), nil
		}
		return size, nil
	case ctf.KindPointer, ctf.KindFunction:
		return uint64(model.Pointer), nil
	case ctf.KindArray:
		arr, err := v.arrayInfo()
		if err != nil {
			return 0, err
		}
		return v.c.AlignOf(arr.Contents)
	case ctf.KindStruct, ctf.KindUnion:
		members, err := c.Members(rid)
		if err != nil {
			return 0, err
		}
		align := uint64(1)
		for _, m := range members {
			ma, err := c.AlignOf(m.Type)
			if err != nil {
				return 0, err
			}
			if ma > align {
				align = ma
			}
		}
		return align, nil
	case ctf.KindForward:
		return 1, nil
	default:
		return 0, errors.Corrupt(errors.PhaseLookup, "alignment of unknown kind for type %d", rid)
	}
}

// TypeEncoding returns the bit encoding of an integer, float, enum, or
// slice type. A slice reports its underlying format narrowed to the
// slice's offset and width.
func (c *Container) TypeEncoding(id ctf.TypeID) (ctf.Encoding, error) {
	v, err := c.view(errors.PhaseLookup, id)
	if err != nil {
		return ctf.Encoding{}, err
	}
	switch v.kind() {
	case ctf.KindInteger, ctf.KindFloat:
		return v.encoding()
	case ctf.KindEnum:
		return ctf.Encoding{Format: ctf.IntSigned, Bits: v.c.model.Int * 8}, nil
	case ctf.KindSlice:
		sl, err := v.sliceInfo()
		if err != nil {
			return ctf.Encoding{}, err
		}
		enc, err := c.TypeEncoding(sl.Type)
		if err != nil {
			return ctf.Encoding{}, err
		}
		enc.Offset = uint32(sl.Offset)
		enc.Bits = uint32(sl.Bits)
		return enc, nil
	case ctf.KindTypedef, ctf.KindVolatile, ctf.KindConst, ctf.KindRestrict:
		return c.TypeEncoding(v.ref())
	}
	return ctf.Encoding{}, errors.New(errors.PhaseLookup, errors.KindInvalidID).
		Detail("%s type %d has no encoding", v.kind(), id).
		Build()
}

// ArrayInfo returns the element type, index type, and element count of an
// array type.
func (c *Container) ArrayInfo(id ctf.TypeID) (ctf.ArrayInfo, error) {
	v, err := c.view(errors.PhaseLookup, id)
	if err != nil {
		return ctf.ArrayInfo{}, err
	}
	if v.kind() != ctf.KindArray {
		return ctf.ArrayInfo{}, errors.New(errors.PhaseLookup, errors.KindInvalidID).
			Detail("%s type %d is not an array", v.kind(), id).
			Build()
	}
	return v.arrayInfo()
}

// SliceInfo returns the underlying type and bit window of a slice type.
func (c *Container) SliceInfo(id ctf.TypeID) (ctf.SliceInfo, error) {
	v, err := c.view(errors.PhaseLookup, id)
	if err != nil {
		return ctf.SliceInfo{}, err
	}
	if v.kind() != ctf.KindSlice {
		return ctf.SliceInfo{}, errors.New(errors.PhaseLookup, errors.KindInvalidID).
			Detail("%s type %d is not a slice", v.kind(), id).
			Build()
	}
	return v.sliceInfo()
}

// ForwardTag returns the tag kind a forward declaration stands for.
func (c *Container) ForwardTag(id ctf.TypeID) (ctf.Kind, error) {
	v, err := c.view(errors.PhaseLookup, id)
	if err != nil {
		return ctf.KindUnknown, err
	}
	if v.kind() != ctf.KindForward {
		return ctf.KindUnknown, errors.New(errors.PhaseLookup, errors.KindInvalidID).
			Detail("%s type %d is not a forward declaration", v.kind(), id).
			Build()
	}
	if v.dyn != nil {
		return v.dyn.tag, nil
	}
	return ctf.Kind(v.rec.Size), nil
}

// FunctionInfo returns the return type and argument list of a function
// type. A trailing NoType argument marks a variadic function.
func (c *Container) FunctionInfo(id ctf.TypeID) (ctf.TypeID, []ctf.TypeID, error) {
	v, err := c.view(errors.PhaseLookup, id)
	if err != nil {
		return ctf.NoType, nil, err
	}
	if v.kind() != ctf.KindFunction {
		return ctf.NoType, nil, errors.New(errors.PhaseLookup, errors.KindInvalidID).
			Detail("%s type %d is not a function", v.kind(), id).
			Build()
	}
	if v.dyn != nil {
		return v.dyn.ref, append([]ctf.TypeID(nil), v.dyn.args...), nil
	}
	raw, err := v.c.static.types.ArgsAt(v.payload, v.rec.Vlen())
	if err != nil {
		return ctf.NoType, nil, err
	}
	args := make([]ctf.TypeID, len(raw))
	for i, a := range raw {
		args[i] = ctf.TypeID(a)
	}
	return v.rec.Ref(), args, nil
}

// Members returns the members of a struct or union type, resolving
// typedefs and qualifiers on id first.
func (c *Container) Members(id ctf.TypeID) ([]ctf.MemberInfo, error) {
	rid, err := c.ResolveType(id)
	if err != nil {
		return nil, err
	}
	v, err := c.view(errors.PhaseLookup, rid)
	if err != nil {
		return nil, err
	}
	if k := v.kind(); k != ctf.KindStruct && k != ctf.KindUnion {
		return nil, errors.New(errors.PhaseLookup, errors.KindInvalidID).
			Detail("%s type %d has no members", k, id).
			Build()
	}
	if v.dyn != nil {
		return append([]ctf.MemberInfo(nil), v.dyn.members...), nil
	}
	raw, err := v.c.static.types.MembersAt(v.payload, v.rec.Vlen())
	if err != nil {
		return nil, err
	}
	members := make([]ctf.MemberInfo, len(raw))
	for i, m := range raw {
		name, err := v.c.static.strtab.Lookup(m.Name)
		if err != nil {
			return nil, err
		}
		members[i] = ctf.MemberInfo{Name: name, Type: ctf.TypeID(m.Type), Offset: m.Offset}
	}
	return members, nil
}

// Member finds a struct or union member by name.
func (c *Container) Member(id ctf.TypeID, name string) (ctf.MemberInfo, error) {
	members, err := c.Members(id)
	if err != nil {
		return ctf.MemberInfo{}, err
	}
	for _, m := range members {
		if m.Name == name {
			return m, nil
		}
	}
	return ctf.MemberInfo{}, errors.NotFound(errors.PhaseLookup, "member", name)
}

// Enumerators returns the name=value pairs of an enum type.
func (c *Container) Enumerators(id ctf.TypeID) ([]ctf.Enumerator, error) {
	rid, err := c.ResolveType(id)
	if err != nil {
		return nil, err
	}
	v, err := c.view(errors.PhaseLookup, rid)
	if err != nil {
		return nil, err
	}
	if v.kind() != ctf.KindEnum {
		return nil, errors.New(errors.PhaseLookup, errors.KindInvalidID).
			Detail("%s type %d is not an enum", v.kind(), id).
			Build()
	}
	if v.dyn != nil {
		return append([]ctf.Enumerator(nil), v.dyn.enums...), nil
	}
	raw, err := v.c.static.types.EnumsAt(v.payload, v.rec.Vlen())
	if err != nil {
		return nil, err
	}
	enums := make([]ctf.Enumerator, len(raw))
	for i, e := range raw {
		name, err := v.c.static.strtab.Lookup(e.Name)
		if err != nil {
			return nil, err
		}
		enums[i] = ctf.Enumerator{Name: name, Value: e.Value}
	}
	return enums, nil
}

// EnumValue finds the value of an enumerator by name.
func (c *Container) EnumValue(id ctf.TypeID, name string) (int32, error) {
	enums, err := c.Enumerators(id)
	if err != nil {
		return 0, err
	}
	for _, e := range enums {
		if e.Name == name {
			return e.Value, nil
		}
	}
	return 0, errors.NotFound(errors.PhaseLookup, "enumerator", name)
}

// EnumName finds the first enumerator with the given value.
func (c *Container) EnumName(id ctf.TypeID, value int32) (string, error) {
	enums, err := c.Enumerators(id)
	if err != nil {
		return "", err
	}
	for _, e := range enums {
		if e.Value == value {
			return e.Name, nil
		}
	}
	return "", errors.New(errors.PhaseLookup, errors.KindNotFound).
		Detail("no enumerator with value %d", value).
		Build()
}

// EachType calls fn for every type defined locally in this container,
// static then dynamic, in id order. Iteration stops when fn returns
// false. Parent types are not visited; walk the parent explicitly.
func (c *Container) EachType(fn func(id ctf.TypeID, kind ctf.Kind) bool) error {
	if err := c.checkClosed(errors.PhaseLookup); err != nil {
		return err
	}
	if c.static != nil {
		for index := uint32(1); index <= c.static.typemax; index++ {
			rec, _, err := c.static.recordFor(index)
			if err != nil {
				return err
			}
			if !fn(c.globalID(index), rec.Kind()) {
				return nil
			}
		}
	}
	for _, dt := range c.ov.types {
		if !fn(c.globalID(dt.index), dt.kind) {
			return nil
		}
	}
	return nil
}

// EachVariable calls fn for every variable binding, static then dynamic.
// Iteration stops when fn returns false.
func (c *Container) EachVariable(fn func(v ctf.VarInfo) bool) error {
	if err := c.checkClosed(errors.PhaseLookup); err != nil {
		return err
	}
	if c.static != nil {
		for i := 0; i < c.static.vars.Count(); i++ {
			v, err := c.static.varAt(i)
			if err != nil {
				return err
			}
			if !fn(v) {
				return nil
			}
		}
	}
	for _, dv := range c.ov.vars {
		if !fn(ctf.VarInfo{Name: dv.name, Type: dv.typ}) {
			return nil
		}
	}
	return nil
}

func (v typeView) encoding() (ctf.Encoding, error) {
	if v.dyn != nil {
		return v.dyn.enc, nil
	}
	word, err := v.c.static.types.EncodingAt(v.payload)
	if err != nil {
		return ctf.Encoding{}, err
	}
	return format.DecodeEncoding(word), nil
}

func (v typeView) arrayInfo() (ctf.ArrayInfo, error) {
	if v.dyn != nil {
		return v.dyn.arr, nil
	}
	a, err := v.c.static.types.ArrayAt(v.payload)
	if err != nil {
		return ctf.ArrayInfo{}, err
	}
	return ctf.ArrayInfo{
		Contents: ctf.TypeID(a.Contents),
		Index:    ctf.TypeID(a.Index),
		NumElems: a.NumElems,
	}, nil
}

func (v typeView) sliceInfo() (ctf.SliceInfo, error) {
	if v.dyn != nil {
		return v.dyn.slice, nil
	}
	s, err := v.c.static.types.SliceAt(v.payload)
	if err != nil {
		return ctf.SliceInfo{}, err
	}
	return ctf.SliceInfo{Type: ctf.TypeID(s.Type), Offset: s.Offset, Bits: s.Bits}, nil
}
