package container

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/ctf"
	"github.com/wippyai/ctf/errors"
	"github.com/wippyai/ctf/format"
)

// staticState holds the immutable half of a container: the encoded buffer,
// its decoded header, section views, and the indices derived from a single
// scan of the type section. It is replaced wholesale on Commit and never
// mutated in place.
type staticState struct {
	buf    []byte
	header format.Header
	types  format.TypeSection
	vars   format.VarSection
	strtab format.Strtab

	// txlate maps a local type index (1-based) to the byte offset of its
	// record inside the type section. txlate[0] is unused.
	txlate  []uint32
	typemax uint32

	// ptrtab maps a local type index to the local index of a pointer type
	// whose referent it is, or 0 when no such pointer exists. Pointers whose
	// referent lives in the parent are kept separately in ptrToParent.
	ptrtab      []uint32
	ptrToParent map[ctf.TypeID]uint32

	// Root-visible names partitioned by tag namespace, each mapping a name
	// to a local type index. The first definition of a name wins within the
	// static section; the overlay shadows all of them.
	structs map[string]uint32
	unions  map[string]uint32
	enums   map[string]uint32
	names   map[string]uint32
}

// Container is a CTF type dictionary. A container opened from a buffer is
// read-only; one created with NewDict, or reopened for update, accepts new
// definitions in a dynamic overlay until Commit folds them into a fresh
// encoded buffer.
//
// A Container is safe for concurrent readers. Mutations require external
// serialization with respect to both readers and other writers.
type Container struct {
	model    ctf.DataModel
	writable bool
	closed   bool
	refs     atomic.Int32

	static *staticState

	parent   *Container
	parmax   uint32
	parLabel string
	parName  string

	ov overlay

	// nextID is the next local index to assign; oldID is the highest index
	// folded into the static buffer by the last Commit. Snapshot epochs
	// gate Rollback so it can never reach behind a Commit.
	nextID     uint32
	oldID      uint32
	snapshots  uint64
	snapshotLU uint64

	symtab ctf.Section

	// onRelease is invoked once when the reference count reaches zero.
	// The archive layer uses it to drop shared backing storage.
	onRelease func()
}

// NewDict creates an empty writable container for the given data model.
func NewDict(model ctf.DataModel) *Container {
	c := &Container{
		model:    model,
		writable: true,
		ov:       newOverlay(),
		nextID:   1,
	}
	c.refs.Store(1)
	return c
}

// Model reports the data model the container was created or opened with.
func (c *Container) Model() ctf.DataModel { return c.model }

// Writable reports whether the container accepts new definitions.
func (c *Container) Writable() bool { return c.writable }

// ParMax returns the inclusive upper bound of the parent id range, or zero
// when the container owns the whole id namespace.
func (c *Container) ParMax() uint32 { return c.parmax }

// Parent returns the imported parent container, or nil.
func (c *Container) Parent() *Container { return c.parent }

// ParentNames returns the label and name recorded for the expected parent,
// as read from the header of a child buffer.
func (c *Container) ParentNames() (label, name string) {
	return c.parLabel, c.parName
}

// TypeMax returns the highest local type index currently defined, counting
// both static and uncommitted dynamic types.
func (c *Container) TypeMax() uint32 { return c.nextID - 1 }

// Bytes returns the encoded buffer produced by the last Commit, or the
// buffer the container was opened from if nothing has been committed. It
// returns nil for a dictionary that has never been committed. The slice
// aliases internal storage and must not be modified.
func (c *Container) Bytes() []byte {
	if c.static == nil {
		return nil
	}
	return c.static.buf
}

// Ref increments the container's reference count and returns it, for
// handing the same container to another owner. Each Ref pairs with one
// Close.
func (c *Container) Ref() *Container {
	c.refs.Add(1)
	return c
}

// Close releases one reference. When the last reference is released the
// container is marked closed, its parent reference is dropped, and any
// backing-storage release hook runs. Close is idempotent per reference
// but using the container after the final Close returns a closed error.
func (c *Container) Close() error {
	if c.refs.Add(-1) != 0 {
		return nil
	}
	c.closed = true
	if c.parent != nil {
		if err := c.parent.Close(); err != nil {
			return err
		}
		c.parent = nil
	}
	if c.onRelease != nil {
		c.onRelease()
		c.onRelease = nil
	}
	Logger().Debug("container closed")
	return nil
}

// SetReleaseHook registers a function to run when the last reference to
// the container is released. It replaces any previously registered hook.
func (c *Container) SetReleaseHook(fn func()) { c.onRelease = fn }

func (c *Container) checkClosed(phase errors.Phase) error {
	if c.closed {
		return errors.Closed(phase, "container")
	}
	return nil
}

func (c *Container) checkWritable(op string) error {
	if c.closed {
		return errors.Closed(errors.PhaseCreate, "container")
	}
	if !c.writable {
		return errors.ReadOnly(op)
	}
	return nil
}

// isChild reports whether the container shares its id namespace with a
// parent range.
func (c *Container) isChild() bool { return c.parmax != 0 }

// globalID converts a local type index into the externally visible id.
func (c *Container) globalID(index uint32) ctf.TypeID {
	return ctf.IndexToType(index, c.parmax, c.isChild())
}

// resolveID validates a type id and routes it to the container that owns
// it, returning that container and the local index within it.
func (c *Container) resolveID(phase errors.Phase, id ctf.TypeID) (*Container, uint32, error) {
	if err := c.checkClosed(phase); err != nil {
		return nil, 0, err
	}
	if id == ctf.NoType {
		return nil, 0, errors.InvalidID(phase, uint32(id))
	}
	if ctf.IsParentID(id, c.parmax) {
		if c.parent == nil {
			return nil, 0, errors.New(phase, errors.KindInvalidID).
				Detail("type %d is in the parent range but no parent is attached", id).
				Build()
		}
		return c.parent.resolveID(phase, id)
	}
	index := ctf.TypeToIndex(id, c.parmax)
	if index == 0 || index >= c.nextID {
		return nil, 0, errors.InvalidID(phase, uint32(id))
	}
	return c, index, nil
}

func (c *Container) allocIndex() (uint32, error) {
	index := c.nextID
	if c.isChild() && index > c.parmax {
		return 0, errors.New(errors.PhaseCreate, errors.KindOverflow).
			Detail("child id space exhausted at index %d (parent boundary %d)", index, c.parmax).
			Build()
	}
	if index > uint32(format.MaxVlen) {
		return 0, errors.New(errors.PhaseCreate, errors.KindOverflow).
			Detail("type id space exhausted at index %d", index).
			Build()
	}
	c.nextID++
	return index, nil
}

func (c *Container) logAdd(kind ctf.Kind, name string, id ctf.TypeID) {
	Logger().Debug("type added",
		zap.Stringer("kind", kind),
		zap.String("name", name),
		zap.Uint32("id", uint32(id)))
}
