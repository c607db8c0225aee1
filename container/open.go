package container

import (
	"go.uber.org/zap"

	"github.com/wippyai/ctf"
	"github.com/wippyai/ctf/errors"
	"github.com/wippyai/ctf/format"
)

// OpenOption configures Open.
type OpenOption func(*openConfig)

type openConfig struct {
	symtab   ctf.Section
	writable bool
}

// WithSymtab attaches an external symbol translation list, one type id
// per symbol-table index. LookupBySymbol reads it.
func WithSymtab(sec ctf.Section) OpenOption {
	return func(cfg *openConfig) { cfg.symtab = sec }
}

// ForUpdate opens the container writable, so new definitions can be added
// on top of the parsed buffer.
func ForUpdate() OpenOption {
	return func(cfg *openConfig) { cfg.writable = true }
}

// Open parses an encoded dictionary buffer into a read-only container.
// The buffer is validated structurally up front: header identity, section
// ordering, and record framing. Payload contents are validated lazily on
// access.
//
// Open does not take ownership of sec.Data for an uncompressed buffer;
// the bytes must stay valid for the container's lifetime.
func Open(sec ctf.Section, opts ...OpenOption) (*Container, error) {
	var cfg openConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	h, body, err := format.DecodeHeader(sec.Data)
	if err != nil {
		return nil, err
	}
	model, ok := ctf.ModelByCode(h.Model)
	if !ok {
		return nil, errors.Unsupported(errors.PhaseOpen,
			"unknown data model code")
	}

	st, err := parseStatic(h, sec.Data, body, h.ParMax)
	if err != nil {
		return nil, err
	}

	parLabel, err := st.strtab.Lookup(h.ParLabel)
	if err != nil {
		return nil, err
	}
	parName, err := st.strtab.Lookup(h.ParName)
	if err != nil {
		return nil, err
	}

	c := &Container{
		model:    model,
		writable: cfg.writable,
		static:   st,
		parmax:   h.ParMax,
		parLabel: parLabel,
		parName:  parName,
		ov:       newOverlay(),
		nextID:   st.typemax + 1,
		oldID:    st.typemax,
		symtab:   cfg.symtab,
	}
	c.refs.Store(1)

	Logger().Debug("container opened",
		zap.String("section", sec.Name),
		zap.String("model", model.Name),
		zap.Uint32("types", st.typemax),
		zap.Int("variables", st.vars.Count()),
		zap.Uint32("parmax", h.ParMax),
		zap.Bool("writable", cfg.writable))
	return c, nil
}

// parseStatic scans the body sections once, building the record offset
// table, the partitioned name maps, and the pointer-to table.
func parseStatic(h format.Header, buf, body []byte, parmax uint32) (*staticState, error) {
	st := &staticState{
		buf:         buf,
		header:      h,
		types:       format.NewTypeSection(body[h.TypeOff:h.StrOff]),
		vars:        format.NewVarSection(body[h.VarOff:h.TypeOff]),
		strtab:      format.NewStrtab(body[h.StrOff : h.StrOff+h.StrLen]),
		ptrToParent: make(map[ctf.TypeID]uint32),
		structs:     make(map[string]uint32),
		unions:      make(map[string]uint32),
		enums:       make(map[string]uint32),
		names:       make(map[string]uint32),
	}
	if (h.TypeOff-h.VarOff)%format.VarEntrySize != 0 {
		return nil, errors.Parse(errors.PhaseOpen,
			"variable section size not a multiple of entry size", nil)
	}

	st.txlate = append(st.txlate, 0) // index 0 unused

	type ptrRef struct {
		index uint32
		ref   ctf.TypeID
	}
	var pointers []ptrRef

	err := st.types.Scan(func(off uint32, rec format.TypeRecord) error {
		index := uint32(len(st.txlate))
		st.txlate = append(st.txlate, off)

		name, err := st.strtab.Lookup(rec.Name)
		if err != nil {
			return err
		}
		kind := rec.Kind()
		if name != "" && rec.IsRoot() {
			space := spaceForKind(kind)
			if kind == ctf.KindForward {
				space = spaceForKind(ctf.Kind(rec.Size))
			}
			m := st.nameMap(space)
			// first definition of a name wins within the static section
			if _, dup := m[name]; !dup {
				m[name] = index
			}
		}
		if kind == ctf.KindPointer {
			pointers = append(pointers, ptrRef{index: index, ref: rec.Ref()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	st.typemax = uint32(len(st.txlate) - 1)
	st.ptrtab = make([]uint32, st.typemax+1)
	for _, p := range pointers {
		if ctf.IsParentID(p.ref, parmax) {
			st.ptrToParent[p.ref] = p.index
			continue
		}
		ref := ctf.TypeToIndex(p.ref, parmax)
		if ref > 0 && ref <= st.typemax && st.ptrtab[ref] == 0 {
			st.ptrtab[ref] = p.index
		}
	}
	return st, nil
}

func (st *staticState) nameMap(space nameSpace) map[string]uint32 {
	switch space {
	case spaceStructs:
		return st.structs
	case spaceUnions:
		return st.unions
	case spaceEnums:
		return st.enums
	default:
		return st.names
	}
}

// recordFor returns the record and payload offset for a static local
// index.
func (st *staticState) recordFor(index uint32) (format.TypeRecord, uint32, error) {
	if index == 0 || index > st.typemax {
		return format.TypeRecord{}, 0, errors.InvalidID(errors.PhaseLookup, index)
	}
	return st.types.RecordAt(st.txlate[index])
}
