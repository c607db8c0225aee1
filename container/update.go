package container

import (
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/ctf"
	"github.com/wippyai/ctf/errors"
	"github.com/wippyai/ctf/format"
)

// SnapshotID marks a point in a container's mutation history. It is only
// meaningful to the container that issued it.
type SnapshotID struct {
	lastID uint32
	epoch  uint64
}

// Snapshot records the current state of the overlay so a later Rollback
// can discard everything defined after this point.
func (c *Container) Snapshot() SnapshotID {
	s := SnapshotID{lastID: c.nextID - 1, epoch: c.snapshots}
	c.snapshots++
	return s
}

// Rollback discards every type and variable defined after the snapshot
// was taken. A snapshot taken before the last Commit is invalid: committed
// state cannot be unwound.
func (c *Container) Rollback(s SnapshotID) error {
	if err := c.checkWritable("rollback"); err != nil {
		return err
	}
	if s.epoch < c.snapshotLU || s.lastID < c.oldID {
		return errors.InvalidEpoch("snapshot predates the last commit")
	}
	c.ov.rollbackTypes(s.lastID)
	c.ov.rollbackVars(s.epoch)
	c.nextID = s.lastID + 1
	Logger().Debug("rolled back",
		zap.Uint32("last_id", s.lastID),
		zap.Uint64("epoch", s.epoch))
	return nil
}

// CommitOption configures Commit.
type CommitOption func(*commitConfig)

type commitConfig struct {
	compress bool
}

// WithCompression commits the body zlib-compressed.
func WithCompression() CommitOption {
	return func(cfg *commitConfig) { cfg.compress = true }
}

// Commit folds the overlay into a fresh encoded buffer and reopens the
// container on it. The operation is all-or-nothing: on any error the
// container is left exactly as it was, overlay included.
//
// The new buffer extends the previous one: committed type records keep
// their encoded bytes and string offsets, so a commit with an empty
// overlay reproduces the previous buffer exactly.
func (c *Container) Commit(opts ...CommitOption) error {
	if err := c.checkClosed(errors.PhaseUpdate); err != nil {
		return err
	}
	var cfg commitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var flags uint8
	if cfg.compress {
		flags = format.FlagCompress
	}

	if err := c.validateOverlay(); err != nil {
		return err
	}

	var seed, staticTypes []byte
	if c.static != nil {
		seed = c.static.strtab.Bytes()
		staticTypes = c.static.types.Bytes()
	}
	sb := format.SeedStrtabBuilder(seed)

	tw := format.NewBodyWriter()
	tw.Raw(staticTypes)
	for _, dt := range c.ov.types {
		c.encodeDynType(tw, sb, dt)
	}

	vars, err := c.mergedVars()
	if err != nil {
		return err
	}
	vw := format.NewBodyWriter()
	for _, v := range vars {
		vw.VarEntry(format.VarEntry{Name: sb.Add(v.Name), Type: uint32(v.Type)})
	}

	h := format.Header{
		Flags:    flags,
		Model:    c.model.Code,
		ParMax:   c.parmax,
		ParLabel: sb.Add(c.parLabel),
		ParName:  sb.Add(c.parName),
		VarOff:   0,
		TypeOff:  vw.Len(),
		StrOff:   vw.Len() + tw.Len(),
		StrLen:   sb.Len(),
	}

	bw := format.NewBodyWriter()
	bw.Raw(vw.Bytes())
	bw.Raw(tw.Bytes())
	bw.Raw(sb.Bytes())
	buf, err := h.Encode(bw.Bytes())
	if err != nil {
		return err
	}

	// reparse the new buffer before touching any container state, so a
	// failure leaves the overlay intact
	newH, newBody, err := format.DecodeHeader(buf)
	if err != nil {
		return err
	}
	st, err := parseStatic(newH, buf, newBody, c.parmax)
	if err != nil {
		return err
	}

	c.static = st
	c.ov.clear()
	c.oldID = c.nextID - 1
	c.snapshots++
	c.snapshotLU = c.snapshots

	Logger().Debug("committed",
		zap.Uint32("types", st.typemax),
		zap.Int("variables", st.vars.Count()),
		zap.Int("bytes", len(buf)),
		zap.Bool("compressed", cfg.compress))
	return nil
}

// validateOverlay checks that every reference held by an uncommitted
// definition still resolves, so a rolled-back referent cannot reach the
// encoded buffer.
func (c *Container) validateOverlay() error {
	check := func(id ctf.TypeID) error {
		_, _, err := c.resolveID(errors.PhaseUpdate, id)
		return err
	}
	for _, dt := range c.ov.types {
		var err error
		switch dt.kind {
		case ctf.KindPointer, ctf.KindTypedef, ctf.KindVolatile,
			ctf.KindConst, ctf.KindRestrict:
			err = check(dt.ref)
		case ctf.KindSlice:
			err = check(dt.slice.Type)
		case ctf.KindArray:
			if err = check(dt.arr.Contents); err == nil {
				err = check(dt.arr.Index)
			}
		case ctf.KindFunction:
			if dt.ref != ctf.NoType {
				err = check(dt.ref)
			}
			for i, a := range dt.args {
				if err != nil {
					break
				}
				if a == ctf.NoType && i == len(dt.args)-1 {
					continue
				}
				err = check(a)
			}
		case ctf.KindStruct, ctf.KindUnion:
			for _, m := range dt.members {
				if err = check(m.Type); err != nil {
					break
				}
			}
		}
		if err != nil {
			return errors.New(errors.PhaseUpdate, errors.KindInvalidID).
				Detail("type %d holds a dangling reference", c.globalID(dt.index)).
				Cause(err).
				Build()
		}
	}
	for _, dv := range c.ov.vars {
		if err := check(dv.typ); err != nil {
			return errors.New(errors.PhaseUpdate, errors.KindInvalidID).
				Detail("variable %q holds a dangling reference", dv.name).
				Cause(err).
				Build()
		}
	}
	return nil
}

// encodeDynType appends one overlay definition to the type section.
func (c *Container) encodeDynType(tw *format.BodyWriter, sb *format.StrtabBuilder, dt *dynType) {
	var size uint64
	var vlen uint32
	switch dt.kind {
	case ctf.KindInteger, ctf.KindFloat, ctf.KindStruct, ctf.KindUnion, ctf.KindEnum:
		size = dt.size
	case ctf.KindPointer, ctf.KindTypedef, ctf.KindVolatile,
		ctf.KindConst, ctf.KindRestrict, ctf.KindFunction:
		size = uint64(dt.ref)
	case ctf.KindForward:
		size = uint64(dt.tag)
	}
	switch dt.kind {
	case ctf.KindStruct, ctf.KindUnion:
		vlen = uint32(len(dt.members))
	case ctf.KindEnum:
		vlen = uint32(len(dt.enums))
	case ctf.KindFunction:
		vlen = uint32(len(dt.args))
	}

	tw.Record(format.TypeRecord{
		Name: sb.Add(dt.name),
		Info: format.TypeInfo(dt.kind, dt.isRoot, vlen),
		Size: size,
	})

	switch dt.kind {
	case ctf.KindInteger, ctf.KindFloat:
		tw.Encoding(format.EncodingWord(dt.enc))
	case ctf.KindArray:
		tw.Array(format.Array{
			Contents: uint32(dt.arr.Contents),
			Index:    uint32(dt.arr.Index),
			NumElems: dt.arr.NumElems,
		})
	case ctf.KindSlice:
		tw.Slice(format.Slice{
			Type:   uint32(dt.slice.Type),
			Offset: dt.slice.Offset,
			Bits:   dt.slice.Bits,
		})
	case ctf.KindStruct, ctf.KindUnion:
		for _, m := range dt.members {
			tw.Member(format.Member{
				Name:   sb.Add(m.Name),
				Type:   uint32(m.Type),
				Offset: m.Offset,
			})
		}
	case ctf.KindEnum:
		for _, e := range dt.enums {
			tw.Enum(format.Enum{Name: sb.Add(e.Name), Value: e.Value})
		}
	case ctf.KindFunction:
		args := make([]uint32, len(dt.args))
		for i, a := range dt.args {
			args[i] = uint32(a)
		}
		tw.Args(args)
	}
}

// mergedVars combines static and dynamic variable bindings, sorted by
// name as the wire format requires.
func (c *Container) mergedVars() ([]ctf.VarInfo, error) {
	var vars []ctf.VarInfo
	if c.static != nil {
		for i := 0; i < c.static.vars.Count(); i++ {
			v, err := c.static.varAt(i)
			if err != nil {
				return nil, err
			}
			vars = append(vars, v)
		}
	}
	for _, dv := range c.ov.vars {
		vars = append(vars, ctf.VarInfo{Name: dv.name, Type: dv.typ})
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return vars, nil
}
