package core

// Engine owns one document and its linear undo history. It is not safe for
// concurrent use; Workbook provides the locking.
type Engine struct {
	doc     *Document
	history []Operation
	redo    []Operation

	// version increments on every applied operation, undo or redo.
	version uint64
}

// NewEngine returns an engine over doc with empty history.
func NewEngine(doc *Document) *Engine {
	return &Engine{doc: doc}
}

// Document returns the live document.
func (e *Engine) Document() *Document { return e.doc }

// Execute resolves req against the live document, applies it and records it.
// A request that changes nothing is not recorded and leaves redo intact.
func (e *Engine) Execute(req Request) (Change, error) {
	op, err := req.resolve(e.doc)
	if err != nil {
		return noChange(req.SheetIndex()), err
	}
	if op == nil {
		return noChange(req.SheetIndex()), nil
	}

	change := op.apply(e.doc)
	e.history = append(e.history, op)
	e.redo = nil
	e.version++
	return change, nil
}

// Undo applies the inverse of the most recent operation and moves the
// operation itself onto the redo stack.
func (e *Engine) Undo() (Change, error) {
	n := len(e.history)
	if n == 0 {
		return noChange(0), ErrNothingToUndo
	}
	op := e.history[n-1]
	e.history = e.history[:n-1]

	change := op.Inverse().apply(e.doc)
	e.redo = append(e.redo, op)
	e.version++
	return change, nil
}

// Redo re-applies the most recently undone operation.
func (e *Engine) Redo() (Change, error) {
	n := len(e.redo)
	if n == 0 {
		return noChange(0), ErrNothingToRedo
	}
	op := e.redo[n-1]
	e.redo = e.redo[:n-1]

	change := op.apply(e.doc)
	e.history = append(e.history, op)
	e.version++
	return change, nil
}

func (e *Engine) CanUndo() bool { return len(e.history) > 0 }

func (e *Engine) CanRedo() bool { return len(e.redo) > 0 }

// Version counts applied changes since the engine was created.
func (e *Engine) Version() uint64 { return e.version }

// History returns a copy of the undo stack, oldest first.
func (e *Engine) History() []Operation {
	return append([]Operation(nil), e.history...)
}

// PeekUndo returns the operation Undo would revert.
func (e *Engine) PeekUndo() (Operation, bool) {
	if len(e.history) == 0 {
		return nil, false
	}
	return e.history[len(e.history)-1], true
}

// PeekRedo returns the operation Redo would re-apply.
func (e *Engine) PeekRedo() (Operation, bool) {
	if len(e.redo) == 0 {
		return nil, false
	}
	return e.redo[len(e.redo)-1], true
}
