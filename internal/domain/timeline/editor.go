package timeline

import "fmt"

// DefaultHistoryLimit caps the number of undoable commands an Editor keeps.
const DefaultHistoryLimit = 50

// Editor applies commands to a timeline and keeps a bounded undo log plus a
// redo log. Recording a new command discards the redo log.
type Editor struct {
	tl    *Timeline
	undo  []Command
	redo  []Command
	limit int
}

// NewEditor wraps tl. A non-positive limit uses DefaultHistoryLimit.
func NewEditor(tl *Timeline, limit int) *Editor {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Editor{tl: tl, limit: limit}
}

// Timeline returns the edited timeline. Mutating it directly bypasses history
// and invalidates any recorded command.
func (e *Editor) Timeline() *Timeline { return e.tl }

// Do applies cmd and records it for undo.
func (e *Editor) Do(cmd Command) error {
	if err := cmd.Apply(e.tl); err != nil {
		return err
	}
	e.undo = append(e.undo, cmd)
	if len(e.undo) > e.limit {
		// drop the oldest entry
		e.undo = append(e.undo[:0], e.undo[1:]...)
	}
	e.redo = e.redo[:0]
	return nil
}

// Undo reverts the most recent command.
func (e *Editor) Undo() error {
	if len(e.undo) == 0 {
		return ErrNothingToUndo
	}
	cmd := e.undo[len(e.undo)-1]
	if err := cmd.Revert(e.tl); err != nil {
		return fmt.Errorf("undo %s: %w", cmd.Name(), err)
	}
	e.undo = e.undo[:len(e.undo)-1]
	e.redo = append(e.redo, cmd)
	return nil
}

// Redo reapplies the most recently undone command.
func (e *Editor) Redo() error {
	if len(e.redo) == 0 {
		return ErrNothingToRedo
	}
	cmd := e.redo[len(e.redo)-1]
	if err := cmd.Apply(e.tl); err != nil {
		return fmt.Errorf("redo %s: %w", cmd.Name(), err)
	}
	e.redo = e.redo[:len(e.redo)-1]
	e.undo = append(e.undo, cmd)
	return nil
}

// CanUndo reports whether Undo has anything to revert.
func (e *Editor) CanUndo() bool { return len(e.undo) > 0 }

// CanRedo reports whether Redo has anything to reapply.
func (e *Editor) CanRedo() bool { return len(e.redo) > 0 }

// UndoDepth is the number of commands currently undoable.
func (e *Editor) UndoDepth() int { return len(e.undo) }

// History lists the names of undoable commands, oldest first.
func (e *Editor) History() []string {
	names := make([]string, len(e.undo))
	for i, cmd := range e.undo {
		names[i] = cmd.Name()
	}
	return names
}
