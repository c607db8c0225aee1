package container

import (
	"go.uber.org/zap"

	"github.com/wippyai/ctf"
	"github.com/wippyai/ctf/errors"
	"github.com/wippyai/ctf/format"
)

// addType allocates an index, inserts the definition into the overlay,
// and returns its global id. Callers validate payloads first so a failed
// add never reaches the overlay.
func (c *Container) addType(dt *dynType) (ctf.TypeID, error) {
	index, err := c.allocIndex()
	if err != nil {
		return ctf.NoType, err
	}
	dt.index = index
	c.ov.insert(dt)
	id := c.globalID(index)
	c.logAdd(dt.kind, dt.name, id)
	return id, nil
}

// checkDuplicate rejects a name already defined in the overlay's same tag
// namespace. Shadowing a static or parent definition is allowed; replacing
// an uncommitted forward declaration with a definition is allowed too.
func (c *Container) checkDuplicate(space nameSpace, name string) error {
	if name == "" {
		return nil
	}
	if prev := c.ov.lookupName(space, name); prev != nil && prev.kind != ctf.KindForward {
		return errors.DuplicateName(name)
	}
	return nil
}

// checkRef validates that a referenced id resolves in this container or
// its parent.
func (c *Container) checkRef(ref ctf.TypeID) error {
	_, _, err := c.resolveID(errors.PhaseCreate, ref)
	return err
}

// AddInteger defines an integer type with the given encoding. The byte
// size is derived from the encoded width.
func (c *Container) AddInteger(name string, enc ctf.Encoding, root bool) (ctf.TypeID, error) {
	return c.addEncoded(ctf.KindInteger, name, enc, root)
}

// AddFloat defines a floating point type with the given encoding.
func (c *Container) AddFloat(name string, enc ctf.Encoding, root bool) (ctf.TypeID, error) {
	if enc.Format < ctf.FloatSingle || enc.Format > ctf.FloatLongDouble {
		return ctf.NoType, errors.InvalidPayload("float format %d out of range", enc.Format)
	}
	return c.addEncoded(ctf.KindFloat, name, enc, root)
}

func (c *Container) addEncoded(kind ctf.Kind, name string, enc ctf.Encoding, root bool) (ctf.TypeID, error) {
	if err := c.checkWritable("add " + kind.String()); err != nil {
		return ctf.NoType, err
	}
	if enc.Bits == 0 || enc.Bits > 0xffff {
		return ctf.NoType, errors.InvalidPayload("%s width %d bits out of range", kind, enc.Bits)
	}
	if enc.Offset > 0xff {
		return ctf.NoType, errors.InvalidPayload("%s bit offset %d out of range", kind, enc.Offset)
	}
	if err := c.checkDuplicate(spaceNames, name); err != nil {
		return ctf.NoType, err
	}
	return c.addType(&dynType{
		kind:   kind,
		name:   name,
		isRoot: root,
		size:   uint64((enc.Bits + 7) / 8),
		enc:    enc,
	})
}

// AddPointer defines a pointer to ref.
func (c *Container) AddPointer(ref ctf.TypeID, root bool) (ctf.TypeID, error) {
	return c.addReference(ctf.KindPointer, "", ref, root)
}

// AddVolatile defines a volatile qualifier on ref.
func (c *Container) AddVolatile(ref ctf.TypeID, root bool) (ctf.TypeID, error) {
	return c.addReference(ctf.KindVolatile, "", ref, root)
}

// AddConst defines a const qualifier on ref.
func (c *Container) AddConst(ref ctf.TypeID, root bool) (ctf.TypeID, error) {
	return c.addReference(ctf.KindConst, "", ref, root)
}

// AddRestrict defines a restrict qualifier on ref.
func (c *Container) AddRestrict(ref ctf.TypeID, root bool) (ctf.TypeID, error) {
	return c.addReference(ctf.KindRestrict, "", ref, root)
}

// AddTypedef defines name as an alias for ref.
func (c *Container) AddTypedef(name string, ref ctf.TypeID, root bool) (ctf.TypeID, error) {
	if name == "" {
		return ctf.NoType, errors.InvalidPayload("typedef requires a name")
	}
	return c.addReference(ctf.KindTypedef, name, ref, root)
}

func (c *Container) addReference(kind ctf.Kind, name string, ref ctf.TypeID, root bool) (ctf.TypeID, error) {
	if err := c.checkWritable("add " + kind.String()); err != nil {
		return ctf.NoType, err
	}
	if err := c.checkRef(ref); err != nil {
		return ctf.NoType, err
	}
	if err := c.checkDuplicate(spaceNames, name); err != nil {
		return ctf.NoType, err
	}
	return c.addType(&dynType{
		kind:   kind,
		name:   name,
		isRoot: root,
		ref:    ref,
	})
}

// AddArray defines an array type. The index type must resolve to an
// integer.
func (c *Container) AddArray(arr ctf.ArrayInfo, root bool) (ctf.TypeID, error) {
	if err := c.checkWritable("add array"); err != nil {
		return ctf.NoType, err
	}
	if err := c.checkRef(arr.Contents); err != nil {
		return ctf.NoType, err
	}
	if err := c.checkRef(arr.Index); err != nil {
		return ctf.NoType, err
	}
	idxKind, err := c.resolvedKind(arr.Index)
	if err != nil {
		return ctf.NoType, err
	}
	if idxKind != ctf.KindInteger {
		return ctf.NoType, errors.InvalidPayload("array index type %d is %s, want integer",
			arr.Index, idxKind)
	}
	return c.addType(&dynType{kind: ctf.KindArray, isRoot: root, arr: arr})
}

// AddSlice defines a bit-field view of an integral type. The underlying
// type must resolve to an integer, float, or enum.
func (c *Container) AddSlice(sl ctf.SliceInfo, root bool) (ctf.TypeID, error) {
	if err := c.checkWritable("add slice"); err != nil {
		return ctf.NoType, err
	}
	if sl.Bits == 0 {
		return ctf.NoType, errors.InvalidPayload("slice width must be nonzero")
	}
	if err := c.checkRef(sl.Type); err != nil {
		return ctf.NoType, err
	}
	under, err := c.resolvedKind(sl.Type)
	if err != nil {
		return ctf.NoType, err
	}
	switch under {
	case ctf.KindInteger, ctf.KindFloat, ctf.KindEnum:
	default:
		return ctf.NoType, errors.InvalidPayload("slice of %s, want an integral type", under)
	}
	return c.addType(&dynType{kind: ctf.KindSlice, isRoot: root, slice: sl})
}

// AddFunction defines a function type with the given return type and
// argument list. A trailing NoType argument marks a variadic function.
func (c *Container) AddFunction(ret ctf.TypeID, args []ctf.TypeID, root bool) (ctf.TypeID, error) {
	if err := c.checkWritable("add function"); err != nil {
		return ctf.NoType, err
	}
	if uint32(len(args)) > format.MaxVlen {
		return ctf.NoType, errors.Overflow(errors.PhaseCreate,
			"argument count", uint64(len(args)), uint64(format.MaxVlen))
	}
	if ret != ctf.NoType {
		if err := c.checkRef(ret); err != nil {
			return ctf.NoType, err
		}
	}
	for i, a := range args {
		if a == ctf.NoType && i == len(args)-1 {
			continue
		}
		if err := c.checkRef(a); err != nil {
			return ctf.NoType, err
		}
	}
	dt := &dynType{
		kind:   ctf.KindFunction,
		isRoot: root,
		ref:    ret,
		args:   append([]ctf.TypeID(nil), args...),
	}
	return c.addType(dt)
}

// AddStruct defines an empty struct type; populate it with AddMember.
func (c *Container) AddStruct(name string, root bool) (ctf.TypeID, error) {
	return c.addAggregate(ctf.KindStruct, name, root)
}

// AddUnion defines an empty union type; populate it with AddMember.
func (c *Container) AddUnion(name string, root bool) (ctf.TypeID, error) {
	return c.addAggregate(ctf.KindUnion, name, root)
}

func (c *Container) addAggregate(kind ctf.Kind, name string, root bool) (ctf.TypeID, error) {
	if err := c.checkWritable("add " + kind.String()); err != nil {
		return ctf.NoType, err
	}
	if err := c.checkDuplicate(spaceForKind(kind), name); err != nil {
		return ctf.NoType, err
	}
	return c.addType(&dynType{kind: kind, name: name, isRoot: root})
}

// AddEnum defines an empty enum type; populate it with AddEnumerator.
// Its size is the data model's int size.
func (c *Container) AddEnum(name string, root bool) (ctf.TypeID, error) {
	if err := c.checkWritable("add enum"); err != nil {
		return ctf.NoType, err
	}
	if err := c.checkDuplicate(spaceEnums, name); err != nil {
		return ctf.NoType, err
	}
	return c.addType(&dynType{
		kind:   ctf.KindEnum,
		name:   name,
		isRoot: root,
		size:   uint64(c.model.Int),
	})
}

// AddForward declares a tag name whose definition lives elsewhere. The
// tag kind selects the namespace: struct, union, or enum.
func (c *Container) AddForward(name string, tag ctf.Kind, root bool) (ctf.TypeID, error) {
	if err := c.checkWritable("add forward"); err != nil {
		return ctf.NoType, err
	}
	if !tag.IsTagged() {
		return ctf.NoType, errors.InvalidPayload("forward tag kind %s, want struct, union, or enum", tag)
	}
	if name == "" {
		return ctf.NoType, errors.InvalidPayload("forward requires a name")
	}
	if prev := c.ov.lookupName(spaceForKind(tag), name); prev != nil {
		return ctf.NoType, errors.DuplicateName(name)
	}
	return c.addType(&dynType{
		kind:   ctf.KindForward,
		name:   name,
		isRoot: root,
		tag:    tag,
	})
}

// dynAggregate fetches a dynamic struct or union owned by this container.
// Committed types cannot grow new members.
func (c *Container) dynAggregate(id ctf.TypeID) (*dynType, error) {
	owner, index, err := c.resolveID(errors.PhaseCreate, id)
	if err != nil {
		return nil, err
	}
	if owner != c {
		return nil, errors.New(errors.PhaseCreate, errors.KindInvalidID).
			Detail("type %d belongs to the parent container", id).
			Build()
	}
	dt := c.ov.lookupID(index)
	if dt == nil {
		return nil, errors.New(errors.PhaseCreate, errors.KindInvalidID).
			Detail("type %d is committed and cannot be modified", id).
			Build()
	}
	return dt, nil
}

// AddMember appends a member to a dynamic struct or union at the next
// naturally aligned offset, growing the aggregate's size.
func (c *Container) AddMember(id ctf.TypeID, name string, typ ctf.TypeID) error {
	return c.addMember(id, name, typ, 0, false)
}

// AddMemberAt appends a member at an explicit bit offset.
func (c *Container) AddMemberAt(id ctf.TypeID, name string, typ ctf.TypeID, offsetBits uint64) error {
	return c.addMember(id, name, typ, offsetBits, true)
}

func (c *Container) addMember(id ctf.TypeID, name string, typ ctf.TypeID, offsetBits uint64, explicit bool) error {
	if err := c.checkWritable("add member"); err != nil {
		return err
	}
	dt, err := c.dynAggregate(id)
	if err != nil {
		return err
	}
	if dt.kind != ctf.KindStruct && dt.kind != ctf.KindUnion {
		return errors.InvalidPayload("members on %s type %d, want struct or union", dt.kind, id)
	}
	if uint32(len(dt.members)) >= format.MaxVlen {
		return errors.Overflow(errors.PhaseCreate,
			"member count", uint64(len(dt.members)), uint64(format.MaxVlen))
	}
	if name != "" {
		for _, m := range dt.members {
			if m.Name == name {
				return errors.DuplicateName(name)
			}
		}
	}
	if err := c.checkRef(typ); err != nil {
		return err
	}

	bits, err := c.memberBits(typ)
	if err != nil {
		return err
	}

	var off uint64
	switch {
	case explicit:
		off = offsetBits
	case dt.kind == ctf.KindUnion || len(dt.members) == 0:
		off = 0
	default:
		align, err := c.AlignOf(typ)
		if err != nil {
			return err
		}
		if align == 0 {
			align = 1
		}
		last := dt.members[len(dt.members)-1]
		lastBits, err := c.memberBits(last.Type)
		if err != nil {
			return err
		}
		off = roundUp(last.Offset+lastBits, align*8)
	}

	dt.members = append(dt.members, ctf.MemberInfo{Name: name, Type: typ, Offset: off})
	if newSize := (off + bits + 7) / 8; newSize > dt.size {
		dt.size = newSize
	}
	return nil
}

// memberBits returns the width a member of the given type occupies, using
// the encoded bit width for integral types and the byte size otherwise.
func (c *Container) memberBits(typ ctf.TypeID) (uint64, error) {
	kind, err := c.resolvedKind(typ)
	if err != nil {
		return 0, err
	}
	switch kind {
	case ctf.KindInteger, ctf.KindFloat:
		enc, err := c.TypeEncoding(typ)
		if err != nil {
			return 0, err
		}
		return uint64(enc.Bits), nil
	case ctf.KindForward:
		return 0, nil
	}
	size, err := c.SizeOf(typ)
	if err != nil {
		return 0, err
	}
	return size * 8, nil
}

func roundUp(v, align uint64) uint64 {
	return (v + align - 1) / align * align
}

// AddEnumerator appends a name=value pair to a dynamic enum.
func (c *Container) AddEnumerator(id ctf.TypeID, name string, value int32) error {
	if err := c.checkWritable("add enumerator"); err != nil {
		return err
	}
	if name == "" {
		return errors.InvalidPayload("enumerator requires a name")
	}
	dt, err := c.dynAggregate(id)
	if err != nil {
		return err
	}
	if dt.kind != ctf.KindEnum {
		return errors.InvalidPayload("enumerators on %s type %d, want enum", dt.kind, id)
	}
	if uint32(len(dt.enums)) >= format.MaxVlen {
		return errors.Overflow(errors.PhaseCreate,
			"enumerator count", uint64(len(dt.enums)), uint64(format.MaxVlen))
	}
	for _, e := range dt.enums {
		if e.Name == name {
			return errors.DuplicateName(name)
		}
	}
	dt.enums = append(dt.enums, ctf.Enumerator{Name: name, Value: value})
	return nil
}

// AddVariable binds a name to a type in the variable section. The binding
// is stamped with the current snapshot epoch so Rollback can discard it.
func (c *Container) AddVariable(name string, typ ctf.TypeID) error {
	if err := c.checkWritable("add variable"); err != nil {
		return err
	}
	if name == "" {
		return errors.InvalidPayload("variable requires a name")
	}
	if c.ov.lookupVar(name) != nil {
		return errors.DuplicateName(name)
	}
	if c.static != nil {
		if _, ok, err := c.static.lookupVar(name); err != nil {
			return err
		} else if ok {
			return errors.DuplicateName(name)
		}
	}
	if err := c.checkRef(typ); err != nil {
		return err
	}
	c.ov.insertVar(&dynVar{name: name, typ: typ, epoch: c.snapshots})
	Logger().Debug("variable added", zap.String("name", name))
	return nil
}
