package raster

import "errors"

var (
	ErrLayerLimit = errors.New("raster: layer limit reached")
	ErrLastLayer  = errors.New("raster: cannot remove the last drawable layer")
	ErrBadIndex   = errors.New("raster: invalid layer index")
)

// A Stack is the ordered layer list of one canvas. Index 0 is the paper
// layer which is never drawn on, moved or removed. There is always at least
// one drawable layer and never more than Max layers in total.
//
// A Stack does no locking of its own.
type Stack struct {
	W, H int
	Max  int

	Layers []*Layer
}

// NewStack returns a stack holding the paper and one transparent layer.
func NewStack(w, h, max int) *Stack {
	if max < 2 {
		max = 2
	}

	return &Stack{
		W:      w,
		H:      h,
		Max:    max,
		Layers: []*Layer{NewPaper(w, h), NewLayer(w, h)},
	}
}

// Count returns the number of layers including the paper.
func (s *Stack) Count() int { return len(s.Layers) }

// Drawable reports whether i names a drawable layer.
func (s *Stack) Drawable(i int) bool {
	return i > 0 && i < len(s.Layers)
}

// Layer returns layer i or nil.
func (s *Stack) Layer(i int) *Layer {
	if i < 0 || i >= len(s.Layers) {
		return nil
	}

	return s.Layers[i]
}

// Target resolves the layer a draw event paints into, falling back to
// layer 1 for anything that isn't drawable.
func (s *Stack) Target(i int) (int, *Layer) {
	if !s.Drawable(i) {
		i = 1
	}

	return i, s.Layers[i]
}

// Insert adds a transparent layer at i and returns the index it ended up
// at. Indices outside the drawable range append.
func (s *Stack) Insert(i int) (int, error) {
	if len(s.Layers) >= s.Max {
		return 0, ErrLayerLimit
	}

	l := NewLayer(s.W, s.H)
	if i <= 0 || i >= len(s.Layers) {
		s.Layers = append(s.Layers, l)
		return len(s.Layers) - 1, nil
	}

	s.Layers = append(s.Layers, nil)
	copy(s.Layers[i+1:], s.Layers[i:])
	s.Layers[i] = l

	return i, nil
}

// Delete removes layer i, shifting the layers above it down by one.
func (s *Stack) Delete(i int) error {
	if !s.Drawable(i) {
		return ErrBadIndex
	}
	if len(s.Layers) <= 2 {
		return ErrLastLayer
	}

	copy(s.Layers[i:], s.Layers[i+1:])
	s.Layers[len(s.Layers)-1] = nil
	s.Layers = s.Layers[:len(s.Layers)-1]

	return nil
}

// Reorder moves layer from to index to. Opacity travels with the layer.
func (s *Stack) Reorder(from, to int) error {
	if !s.Drawable(from) || !s.Drawable(to) {
		return ErrBadIndex
	}
	if from == to {
		return nil
	}

	l := s.Layers[from]
	if from < to {
		copy(s.Layers[from:], s.Layers[from+1:to+1])
	} else {
		copy(s.Layers[to+1:], s.Layers[to:from])
	}
	s.Layers[to] = l

	return nil
}

// Grow appends transparent layers until the stack has n layers or hits Max.
func (s *Stack) Grow(n int) {
	for len(s.Layers) < n && len(s.Layers) < s.Max {
		s.Layers = append(s.Layers, NewLayer(s.W, s.H))
	}
}

// Dirty reports whether any drawable layer is dirty.
func (s *Stack) Dirty() bool {
	for _, l := range s.Layers[1:] {
		if l.Dirty() {
			return true
		}
	}

	return false
}

// Composite flattens the stack. See Composite.
func (s *Stack) Composite() *Layer {
	return Composite(s.Layers)
}

// ShiftSelection returns where a selected layer index ends up after layer
// from is moved to index to.
func ShiftSelection(sel, from, to int) int {
	switch {
	case sel == from:
		return to
	case from < to && sel > from && sel <= to:
		return sel - 1
	case from > to && sel >= to && sel < from:
		return sel + 1
	}

	return sel
}

// SelectionAfterDelete returns where a selected layer index ends up after
// layer i is deleted from a stack that now has count layers.
func SelectionAfterDelete(sel, i, count int) int {
	if sel > i {
		sel--
	}
	if sel >= count {
		sel = count - 1
	}
	if sel < 1 {
		sel = 1
	}

	return sel
}
