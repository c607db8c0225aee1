package container

import (
	"go.uber.org/zap"

	"github.com/wippyai/ctf"
	"github.com/wippyai/ctf/errors"
)

// Import attaches parent, giving this container's lookups access to the
// low half of the id namespace. The parent must share the child's data
// model and must not itself have a parent: nesting is a single level.
//
// A child opened from a buffer already carries the boundary it was
// committed under; the parent attached to it must fit below that
// boundary. A fresh dictionary takes its boundary from the parent's
// current maximum id, rounded up to the namespace shape.
//
// Import takes a reference on parent, released when the child closes.
func (c *Container) Import(parent *Container) error {
	if err := c.checkClosed(errors.PhaseOpen); err != nil {
		return err
	}
	if parent == nil {
		return errors.New(errors.PhaseOpen, errors.KindInvalidID).
			Detail("nil parent container").
			Build()
	}
	if err := parent.checkClosed(errors.PhaseOpen); err != nil {
		return err
	}
	if c.parent != nil {
		return errors.Unsupported(errors.PhaseOpen, "container already has a parent")
	}
	if parent.parent != nil || parent.parmax != 0 {
		return errors.Unsupported(errors.PhaseOpen, "parent containers cannot be nested")
	}
	if parent == c {
		return errors.Unsupported(errors.PhaseOpen, "container cannot be its own parent")
	}
	if parent.model.Code != c.model.Code {
		return errors.ModelMismatch(errors.PhaseOpen, parent.model.Name, c.model.Name)
	}

	boundary := ctf.ContainerBoundary(parent.TypeMax())
	if c.parmax != 0 {
		// the child buffer fixed its boundary at commit time
		if boundary > c.parmax {
			return errors.New(errors.PhaseOpen, errors.KindModelMismatch).
				Detail("parent spans ids up to %d, child boundary is %d",
					parent.TypeMax(), c.parmax).
				Build()
		}
	} else {
		if c.nextID != 1 {
			// local ids were assigned under parmax == 0 and cannot be
			// renumbered
			return errors.Unsupported(errors.PhaseOpen,
				"cannot attach a parent after local types were defined")
		}
		if boundary == 0 {
			// an empty parent still claims the smallest nonzero range
			boundary = 1
		}
		c.parmax = boundary
	}

	c.parent = parent.Ref()
	Logger().Debug("parent imported",
		zap.Uint32("parmax", c.parmax),
		zap.Uint32("parent_types", parent.TypeMax()))
	return nil
}

// SetParentName records the name of the dictionary this container expects
// as its parent. The name is persisted on Commit so a reader can locate
// and reattach the parent, e.g. among archive members.
func (c *Container) SetParentName(name string) {
	c.parName = name
}

// SetParentLabel records the label the parent must carry. Persisted on
// Commit alongside the parent name.
func (c *Container) SetParentLabel(label string) {
	c.parLabel = label
}
