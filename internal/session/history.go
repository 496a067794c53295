package session

import (
	"errors"
	"fmt"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/field"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/geom"
)

// ErrNothingToUndo is returned when the undo stack is empty.
var ErrNothingToUndo = errors.New("nothing to undo")

// ErrNothingToRedo is returned when the redo stack is empty.
var ErrNothingToRedo = errors.New("nothing to redo")

// ErrUnknownPoint is returned when a point edit names an ID that does not
// exist.
var ErrUnknownPoint = errors.New("unknown point id")

// command is one reversible point edit. apply and revert must be exact
// inverses so the undo stack can replay in either direction.
type command interface {
	apply(ps *field.PointSet) error
	revert(ps *field.PointSet) error
	describe() string
}

type addCommand struct {
	id  int64
	pos geom.Point
}

func (c *addCommand) apply(ps *field.PointSet) error {
	ps.Records = append(ps.Records, field.PointRecord{ID: c.id, Pos: c.pos})
	return nil
}

func (c *addCommand) revert(ps *field.PointSet) error {
	idx := ps.IndexOf(c.id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownPoint, c.id)
	}
	ps.Records = append(ps.Records[:idx], ps.Records[idx+1:]...)
	return nil
}

func (c *addCommand) describe() string { return fmt.Sprintf("add point %d", c.id) }

type moveCommand struct {
	id   int64
	from geom.Point
	to   geom.Point
}

func (c *moveCommand) apply(ps *field.PointSet) error { return c.set(ps, c.to) }

func (c *moveCommand) revert(ps *field.PointSet) error { return c.set(ps, c.from) }

func (c *moveCommand) set(ps *field.PointSet, pos geom.Point) error {
	idx := ps.IndexOf(c.id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownPoint, c.id)
	}
	ps.Records[idx].Pos = pos
	return nil
}

func (c *moveCommand) describe() string { return fmt.Sprintf("move point %d", c.id) }

type deleteCommand struct {
	id     int64
	index  int
	record field.PointRecord
}

func (c *deleteCommand) apply(ps *field.PointSet) error {
	idx := ps.IndexOf(c.id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownPoint, c.id)
	}
	c.index = idx
	c.record = ps.Records[idx]
	ps.Records = append(ps.Records[:idx], ps.Records[idx+1:]...)
	return nil
}

func (c *deleteCommand) revert(ps *field.PointSet) error {
	if c.index < 0 || c.index > len(ps.Records) {
		return fmt.Errorf("%w: %d", ErrUnknownPoint, c.id)
	}
	ps.Records = append(ps.Records[:c.index],
		append([]field.PointRecord{c.record}, ps.Records[c.index:]...)...)
	return nil
}

func (c *deleteCommand) describe() string { return fmt.Sprintf("delete point %d", c.id) }

// history is a bounded undo/redo stack. A fresh edit discards the redo
// branch, matching the editing model of every mainstream editor.
type history struct {
	undo  []command
	redo  []command
	limit int
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = 100
	}
	return &history{limit: limit}
}

func (h *history) push(cmd command) {
	h.undo = append(h.undo, cmd)
	if len(h.undo) > h.limit {
		h.undo = h.undo[1:]
	}
	h.redo = h.redo[:0]
}

func (h *history) popUndo() (command, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	cmd := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, cmd)
	return cmd, true
}

func (h *history) popRedo() (command, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	cmd := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, cmd)
	return cmd, true
}

func (h *history) reset() {
	h.undo = h.undo[:0]
	h.redo = h.redo[:0]
}

// Depths reports the undo and redo stack sizes, for UI enablement.
func (h *history) depths() (undo, redo int) { return len(h.undo), len(h.redo) }
