package core

// ChangeKind mirrors the operation kinds from the point of view of a view
// that needs patching.
type ChangeKind string

const (
	ChangeNone          ChangeKind = "none"
	ChangeCell          ChangeKind = "cell"
	ChangeRowAdded      ChangeKind = "row_added"
	ChangeRowRemoved    ChangeKind = "row_removed"
	ChangeColumnAdded   ChangeKind = "column_added"
	ChangeColumnRemoved ChangeKind = "column_removed"
	ChangeSheetAdded    ChangeKind = "sheet_added"
	ChangeSheetRemoved  ChangeKind = "sheet_removed"
)

// Change is the minimal delta produced by one applied operation. Exactly one
// of the pointer fields is set, matching Kind; ChangeNone sets none.
type Change struct {
	Kind  ChangeKind `json:"kind"`
	Sheet int        `json:"sheet"`

	Cell    *CellDelta     `json:"cell,omitempty"`
	Row     *LineDelta     `json:"row,omitempty"`
	Column  *LineDelta     `json:"column,omitempty"`
	Added   *SheetSnapshot `json:"added,omitempty"`
	Removed *SheetRef      `json:"removed,omitempty"`

	// reindex is the ID of a sheet whose index must be rebuilt.
	reindex string
}

// CellDelta is a single cell's new value.
type CellDelta struct {
	Row   int       `json:"row"`
	Col   int       `json:"col"`
	Value CellValue `json:"value"`
}

// LineDelta is an inserted or removed row or column. Cells is set only for
// insertions.
type LineDelta struct {
	Index int         `json:"index"`
	Cells []CellValue `json:"cells,omitempty"`
}

// SheetRef identifies a removed sheet.
type SheetRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Applied reports whether anything changed.
func (c Change) Applied() bool { return c.Kind != ChangeNone }

// ReindexSheet returns the ID of the sheet that needs a full index rebuild,
// or "" when the index was maintained inline.
func (c Change) ReindexSheet() string { return c.reindex }

func noChange(sheet int) Change {
	return Change{Kind: ChangeNone, Sheet: sheet}
}
