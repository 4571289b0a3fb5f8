package client

import (
	"errors"
	"time"
)

var (
	ErrNothingToUndo = errors.New("client: nothing to undo")
	ErrNothingToRedo = errors.New("client: nothing to redo")
	ErrStale         = errors.New("client: undo history expired")
)

// DefaultDepth is the number of commands a History keeps.
const DefaultDepth = 20

// A Target is what commands act on: the local layers plus the requests
// that make the room converge to them. Indices follow the room's layer
// numbering, 0 being the paper.
type Target interface {
	// LayerPixels returns a copy of layer i, nil if it does not exist.
	LayerPixels(i int) []byte
	// RestoreLayer overwrites layer i and sends it as a full layer sync.
	RestoreLayer(i int, pix []byte) error
	// TranslateLayer shifts layer i locally and asks the room to do the same.
	TranslateLayer(i, dx, dy int) error
	// InsertLayer asks for a layer at i. A non-nil pix is synced into it
	// once the room confirms the insert.
	InsertLayer(i int, pix []byte) error
	// RemoveLayer asks for layer i to be deleted.
	RemoveLayer(i int) error
}

// A Command is one reversible edit. Undo and Redo mutate local memory
// and issue ordinary room requests; nothing about them is ordered against
// other clients, the last full sync wins.
type Command interface {
	Undo(t Target) error
	Redo(t Target) error
}

// PaintCommand holds whole-layer copies from before and after a stroke.
type PaintCommand struct {
	Layer  int
	Before []byte
	After  []byte
}

// NewPaintCommand captures layer i before a stroke starts.
func NewPaintCommand(t Target, i int) *PaintCommand {
	return &PaintCommand{Layer: i, Before: t.LayerPixels(i)}
}

// Finish captures the layer after the stroke.
func (c *PaintCommand) Finish(t Target) {
	c.After = t.LayerPixels(c.Layer)
}

// Changed reports whether the stroke altered anything.
func (c *PaintCommand) Changed() bool {
	if c.Before == nil || c.After == nil || len(c.Before) != len(c.After) {
		return c.After != nil
	}

	for i := range c.Before {
		if c.Before[i] != c.After[i] {
			return true
		}
	}
	return false
}

func (c *PaintCommand) Undo(t Target) error {
	if c.Before == nil {
		return nil
	}
	return t.RestoreLayer(c.Layer, c.Before)
}

func (c *PaintCommand) Redo(t Target) error {
	if c.After == nil {
		return nil
	}
	return t.RestoreLayer(c.Layer, c.After)
}

// MoveCommand is the net translation of one drag.
type MoveCommand struct {
	Layer  int
	DX, DY int
}

func (c *MoveCommand) Undo(t Target) error { return t.TranslateLayer(c.Layer, -c.DX, -c.DY) }
func (c *MoveCommand) Redo(t Target) error { return t.TranslateLayer(c.Layer, c.DX, c.DY) }

// DeleteLayerCommand keeps the pixels of a layer about to be deleted.
type DeleteLayerCommand struct {
	Layer  int
	Pixels []byte
}

// NewDeleteLayerCommand snapshots layer i. Build it before the delete
// request goes out.
func NewDeleteLayerCommand(t Target, i int) *DeleteLayerCommand {
	return &DeleteLayerCommand{Layer: i, Pixels: t.LayerPixels(i)}
}

func (c *DeleteLayerCommand) Undo(t Target) error { return t.InsertLayer(c.Layer, c.Pixels) }
func (c *DeleteLayerCommand) Redo(t Target) error { return t.RemoveLayer(c.Layer) }

// AddLayerCommand records an added layer. Undo snapshots whatever was
// painted into it so that Redo brings the content back with the layer.
type AddLayerCommand struct {
	Layer  int
	Pixels []byte
}

func (c *AddLayerCommand) Undo(t Target) error {
	c.Pixels = t.LayerPixels(c.Layer)
	return t.RemoveLayer(c.Layer)
}

func (c *AddLayerCommand) Redo(t Target) error { return t.InsertLayer(c.Layer, c.Pixels) }

type entry struct {
	cmd Command
	at  time.Time
}

// A History is a bounded undo stack with its redo stack. It is not safe
// for concurrent use.
type History struct {
	// Depth caps the undo stack, the oldest entry is dropped first.
	Depth int
	// Timeout, when set, expires entries older than it.
	Timeout time.Duration
	// Now is the clock, time.Now when nil.
	Now func() time.Time

	undo []entry
	redo []entry
}

func NewHistory(depth int, timeout time.Duration) *History {
	if depth <= 0 {
		depth = DefaultDepth
	}

	return &History{Depth: depth, Timeout: timeout}
}

func (h *History) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// Push records a new command and discards everything that could be redone.
func (h *History) Push(c Command) {
	h.redo = h.redo[:0]
	h.undo = append(h.undo, entry{c, h.now()})

	depth := h.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}
	if n := len(h.undo) - depth; n > 0 {
		h.undo = append(h.undo[:0], h.undo[n:]...)
	}
}

// expire drops undo entries past the timeout and reports how many.
func (h *History) expire() int {
	if h.Timeout <= 0 {
		return 0
	}

	now := h.now()
	n := 0
	for n < len(h.undo) && now.Sub(h.undo[n].at) > h.Timeout {
		n++
	}
	h.undo = append(h.undo[:0], h.undo[n:]...)

	return n
}

// Undo reverts the newest command against t.
func (h *History) Undo(t Target) error {
	if h.expire() > 0 && len(h.undo) == 0 {
		return ErrStale
	}
	if len(h.undo) == 0 {
		return ErrNothingToUndo
	}

	e := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, entry{e.cmd, h.now()})

	return e.cmd.Undo(t)
}

// Redo reapplies the last undone command.
func (h *History) Redo(t Target) error {
	if len(h.redo) == 0 {
		return ErrNothingToRedo
	}

	e := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, entry{e.cmd, h.now()})

	return e.cmd.Redo(t)
}

// peek returns the commands Undo and Redo would run next.
func (h *History) peek() (undo, redo Command) {
	if n := len(h.undo); n > 0 {
		undo = h.undo[n-1].cmd
	}
	if n := len(h.redo); n > 0 {
		redo = h.redo[n-1].cmd
	}
	return undo, redo
}

// drop removes cmd from both stacks and reports whether it was there.
func (h *History) drop(cmd Command) bool {
	found := false
	keep := func(es []entry) []entry {
		out := es[:0]
		for _, e := range es {
			if e.cmd == cmd {
				found = true
				continue
			}
			out = append(out, e)
		}
		return out
	}

	h.undo = keep(h.undo)
	h.redo = keep(h.redo)
	return found
}

// Len returns the sizes of the undo and redo stacks.
func (h *History) Len() (undo, redo int) {
	return len(h.undo), len(h.redo)
}

// Clear forgets every command.
func (h *History) Clear() {
	h.undo = h.undo[:0]
	h.redo = h.redo[:0]
}
