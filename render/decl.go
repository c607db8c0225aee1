package render

import (
	"fmt"
	"strings"

	"github.com/wippyai/ctf"
	"github.com/wippyai/ctf/container"
	"github.com/wippyai/ctf/errors"
)

// Lexical precedence levels of a C declaration, innermost first.
type prec int

const (
	precBase prec = iota
	precPointer
	precArray
	precFunction
	precMax
)

// Option configures rendering.
type Option func(*config)

type config struct {
	maxLen int
}

// WithMaxLen caps the rendered string at n bytes. A declaration that
// would exceed the cap is cut off and returned together with a truncated
// error.
func WithMaxLen(n int) Option {
	return func(cfg *config) { cfg.maxLen = n }
}

// TypeName renders the C type name of id, without an identifier:
// "struct pair *", "int [10]".
func TypeName(c *container.Container, id ctf.TypeID, opts ...Option) (string, error) {
	return Declaration(c, id, "", opts...)
}

// Declaration renders a C declaration of ident with the type id:
// "int *p[10]" for an array of pointers, "int (*p)[10]" for a pointer
// to an array. An empty ident renders the bare type name.
func Declaration(c *container.Container, id ctf.TypeID, ident string, opts ...Option) (string, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	d := decl{c: c}
	d.push(id)
	out := d.render(ident)
	if d.err != nil {
		return "", errors.New(errors.PhaseRender, errors.KindInvalidID).
			Detail("cannot render type %d", id).
			Cause(d.err).
			Build()
	}
	if cfg.maxLen > 0 && len(out) > cfg.maxLen {
		return out[:cfg.maxLen], errors.New(errors.PhaseRender, errors.KindTruncated).
			Detail("declaration exceeds %d bytes", cfg.maxLen).
			Build()
	}
	return out, nil
}

// node is one rendered step of the reference chain.
type node struct {
	kind ctf.Kind
	id   ctf.TypeID
	n    uint32 // array element count
}

type decl struct {
	c     *container.Container
	nodes [precMax][]node
	order [precMax]int
	qualp prec // precedence qualifiers attach at
	ordp  int
	err   error
}

// push sorts id and everything it references into the precedence levels.
// Referents are pushed before the node that refers to them, so each
// level ends up ordered from the base type outward.
func (d *decl) push(id ctf.TypeID) {
	if d.err != nil {
		return
	}
	kind, err := d.c.Kind(id)
	if err != nil {
		d.err = err
		return
	}

	var n uint32
	var p prec
	switch kind {
	case ctf.KindArray:
		arr, err := d.c.ArrayInfo(id)
		if err != nil {
			d.err = err
			return
		}
		d.push(arr.Contents)
		n = arr.NumElems
		p = precArray
	case ctf.KindFunction:
		ret, _, err := d.c.FunctionInfo(id)
		if err != nil {
			d.err = err
			return
		}
		if ret != ctf.NoType {
			d.push(ret)
		}
		p = precFunction
	case ctf.KindPointer:
		ref, err := d.c.Reference(id)
		if err != nil {
			d.err = err
			return
		}
		d.push(ref)
		p = precPointer
	case ctf.KindTypedef:
		name, err := d.c.TypeName(id)
		if err != nil {
			d.err = err
			return
		}
		if name == "" {
			// an anonymous typedef renders as its referent
			d.pushRef(id)
			return
		}
		p = precBase
	case ctf.KindSlice:
		// a bit-field slice renders as its underlying type
		d.pushRef(id)
		return
	case ctf.KindVolatile, ctf.KindConst, ctf.KindRestrict:
		ref, err := d.c.Reference(id)
		if err != nil {
			d.err = err
			return
		}
		d.push(ref)
		p = d.qualp
	default:
		p = precBase
	}

	if len(d.nodes[p]) == 0 {
		d.order[p] = d.ordp
		d.ordp++
	}
	d.nodes[p] = append(d.nodes[p], node{kind: kind, id: id, n: n})
	d.qualp = p
}

func (d *decl) pushRef(id ctf.TypeID) {
	ref, err := d.c.Reference(id)
	if err != nil {
		d.err = err
		return
	}
	d.push(ref)
}

// render emits the levels in precedence order. When the storage order of
// the pointer or array level conflicts with lexical precedence, that
// level is parenthesized, and the identifier lands after the pointer
// declarators so it sits inside the parentheses when they wrap them.
func (d *decl) render(ident string) string {
	var sb strings.Builder

	ptr := d.order[precPointer] > int(precPointer)
	arr := d.order[precArray] > int(precArray)
	rp := prec(-1)
	switch {
	case arr:
		rp = precArray
	case ptr:
		rp = precPointer
	}

	// seed with pointer so nothing precedes the first fragment with a
	// space, and nothing follows a "*" with one
	k := ctf.KindPointer
	wroteIdent := ident == ""

	for p := precBase; p < precMax; p++ {
		for i, nd := range d.nodes[p] {
			if k != ctf.KindPointer && k != ctf.KindArray {
				sb.WriteByte(' ')
			}
			if p == rp && i == 0 {
				sb.WriteByte('(')
			}
			d.emit(&sb, nd)
			k = nd.kind
		}

		if p == precPointer && !wroteIdent {
			if k != ctf.KindPointer && k != ctf.KindArray {
				sb.WriteByte(' ')
			}
			sb.WriteString(ident)
			wroteIdent = true
			k = ctf.KindPointer
		}
		if p == rp && len(d.nodes[p]) > 0 {
			sb.WriteByte(')')
			k = ctf.KindPointer
		}
	}
	return sb.String()
}

func (d *decl) emit(sb *strings.Builder, nd node) {
	switch nd.kind {
	case ctf.KindInteger, ctf.KindFloat, ctf.KindTypedef:
		name, err := d.c.TypeName(nd.id)
		if err != nil {
			d.err = err
			return
		}
		sb.WriteString(name)
	case ctf.KindPointer:
		sb.WriteByte('*')
	case ctf.KindArray:
		fmt.Fprintf(sb, "[%d]", nd.n)
	case ctf.KindFunction:
		sb.WriteString("()")
	case ctf.KindStruct, ctf.KindUnion, ctf.KindEnum:
		d.emitTagged(sb, nd.id, nd.kind)
	case ctf.KindForward:
		tag, err := d.c.ForwardTag(nd.id)
		if err != nil {
			d.err = err
			return
		}
		d.emitTagged(sb, nd.id, tag)
	case ctf.KindVolatile, ctf.KindConst, ctf.KindRestrict:
		sb.WriteString(nd.kind.String())
	}
}

func (d *decl) emitTagged(sb *strings.Builder, id ctf.TypeID, tag ctf.Kind) {
	name, err := d.c.TypeName(id)
	if err != nil {
		d.err = err
		return
	}
	sb.WriteString(tag.String())
	if name != "" {
		sb.WriteByte(' ')
		sb.WriteString(name)
	}
}
