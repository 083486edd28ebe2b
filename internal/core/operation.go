package core

// operation.go defines the two phases of an edit.
//
// A Request is what a caller asks for. It may carry advisory data (an old
// value, a captured row) that is never trusted. Resolving a Request against
// the live document yields an Operation: fully determined, immutable once
// recorded in history, and able to produce its own inverse.
//
// A Request that targets something out of range resolves to no Operation;
// nothing is applied or recorded and the caller gets a ChangeNone.

import "github.com/google/uuid"

// OpKind names an operation variant.
type OpKind string

const (
	OpSetCell      OpKind = "set_cell"
	OpAddRow       OpKind = "add_row"
	OpDeleteRow    OpKind = "delete_row"
	OpAddColumn    OpKind = "add_column"
	OpDeleteColumn OpKind = "delete_column"
	OpAddSheet     OpKind = "add_sheet"
	OpDeleteSheet  OpKind = "delete_sheet"
)

// Structural reports whether operations of this kind move cells, which
// invalidates every position in the sheet's index.
func (k OpKind) Structural() bool {
	return k != OpSetCell
}

// Request is caller intent, resolved against the live document at execute time.
type Request interface {
	Kind() OpKind
	// SheetIndex is the sheet the request targets, for reporting no-ops.
	SheetIndex() int
	resolve(doc *Document) (Operation, error)
}

// advisoryRequest is implemented by requests that carry the caller's view of
// what they are about to replace. stale reports a mismatch with doc; it never
// changes how the request resolves.
type advisoryRequest interface {
	stale(doc *Document) bool
}

// Operation is a committed, self-inverting edit.
type Operation interface {
	Kind() OpKind
	Inverse() Operation
	apply(doc *Document) Change
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// SetCellRequest writes Value at (Sheet, Row, Col). Old is what the caller
// believes is there; the live cell is re-read instead.
type SetCellRequest struct {
	Sheet, Row, Col int
	Old             *CellValue
	Value           CellValue
}

func (r SetCellRequest) Kind() OpKind    { return OpSetCell }
func (r SetCellRequest) SheetIndex() int { return r.Sheet }

func (r SetCellRequest) stale(doc *Document) bool {
	if r.Old == nil {
		return false
	}
	s, ok := doc.Sheet(r.Sheet)
	if !ok {
		return false
	}
	live, ok := s.Cell(r.Row, r.Col)
	return ok && !live.Equal(*r.Old)
}

func (r SetCellRequest) resolve(doc *Document) (Operation, error) {
	s, ok := doc.Sheet(r.Sheet)
	if !ok {
		return nil, nil
	}
	old, ok := s.Cell(r.Row, r.Col)
	if !ok || old.Equal(r.Value) {
		return nil, nil
	}
	return SetCell{Sheet: r.Sheet, Row: r.Row, Col: r.Col, Old: old, New: r.Value}, nil
}

// AppendRow as an AddRowRequest index inserts after the last row, wherever
// that is when the request runs.
const AppendRow = -1

// AddRowRequest inserts a row of Null at Index (0..RowCount, or AppendRow).
type AddRowRequest struct {
	Sheet, Index int
}

func (r AddRowRequest) Kind() OpKind    { return OpAddRow }
func (r AddRowRequest) SheetIndex() int { return r.Sheet }

func (r AddRowRequest) resolve(doc *Document) (Operation, error) {
	s, ok := doc.Sheet(r.Sheet)
	if !ok {
		return nil, nil
	}
	index := r.Index
	if index == AppendRow {
		index = s.RowCount()
	}
	if index < 0 || index > s.RowCount() {
		return nil, nil
	}
	return AddRow{Sheet: r.Sheet, Index: index, Cells: make([]CellValue, s.ColumnCount())}, nil
}

// DeleteRowRequest removes the row at Index. Captured is what the caller
// saw there; the live row is what gets recorded.
type DeleteRowRequest struct {
	Sheet, Index int
	Captured     []CellValue
}

func (r DeleteRowRequest) Kind() OpKind    { return OpDeleteRow }
func (r DeleteRowRequest) SheetIndex() int { return r.Sheet }

func (r DeleteRowRequest) stale(doc *Document) bool {
	if r.Captured == nil {
		return false
	}
	s, ok := doc.Sheet(r.Sheet)
	if !ok || r.Index < 0 || r.Index >= s.RowCount() {
		return false
	}
	return !cellsEqual(r.Captured, s.rows[r.Index])
}

func (r DeleteRowRequest) resolve(doc *Document) (Operation, error) {
	s, ok := doc.Sheet(r.Sheet)
	if !ok || r.Index < 0 || r.Index >= s.RowCount() {
		return nil, nil
	}
	cells := append([]CellValue(nil), s.rows[r.Index]...)
	return DeleteRow{Sheet: r.Sheet, Index: r.Index, Cells: cells}, nil
}

// AddColumnRequest appends a Null column. The committed operation records
// the index the column actually landed at.
type AddColumnRequest struct {
	Sheet int
}

func (r AddColumnRequest) Kind() OpKind    { return OpAddColumn }
func (r AddColumnRequest) SheetIndex() int { return r.Sheet }

func (r AddColumnRequest) resolve(doc *Document) (Operation, error) {
	s, ok := doc.Sheet(r.Sheet)
	if !ok {
		return nil, nil
	}
	return AddColumn{Sheet: r.Sheet, Index: s.ColumnCount(), Cells: make([]CellValue, s.RowCount())}, nil
}

// DeleteColumnRequest removes column Index from every row. Captured, like
// DeleteRowRequest's, is advisory.
type DeleteColumnRequest struct {
	Sheet, Index int
	Captured     []CellValue
}

func (r DeleteColumnRequest) Kind() OpKind    { return OpDeleteColumn }
func (r DeleteColumnRequest) SheetIndex() int { return r.Sheet }

func (r DeleteColumnRequest) stale(doc *Document) bool {
	if r.Captured == nil {
		return false
	}
	s, ok := doc.Sheet(r.Sheet)
	if !ok || r.Index < 0 || r.Index >= s.ColumnCount() {
		return false
	}
	if len(r.Captured) != s.RowCount() {
		return true
	}
	for i, row := range s.rows {
		if !row[r.Index].Equal(r.Captured[i]) {
			return true
		}
	}
	return false
}

func (r DeleteColumnRequest) resolve(doc *Document) (Operation, error) {
	s, ok := doc.Sheet(r.Sheet)
	if !ok || r.Index < 0 || r.Index >= s.ColumnCount() {
		return nil, nil
	}
	cells := make([]CellValue, s.RowCount())
	for i, row := range s.rows {
		cells[i] = row[r.Index]
	}
	return DeleteColumn{Sheet: r.Sheet, Index: r.Index, Cells: cells}, nil
}

// AddSheetRequest appends a sheet: a copy of Snapshot under a new ID when
// given, otherwise a blank default-sized sheet named Name (or Sheet<N+1>).
type AddSheetRequest struct {
	Name     string
	Snapshot *SheetSnapshot
}

func (r AddSheetRequest) Kind() OpKind    { return OpAddSheet }
func (r AddSheetRequest) SheetIndex() int { return -1 }

func (r AddSheetRequest) resolve(doc *Document) (Operation, error) {
	var snap SheetSnapshot
	if r.Snapshot != nil {
		copied := r.Snapshot.Restore()
		copied.ID = uuid.New().String()
		snap = copied.Snapshot()
	} else {
		name := r.Name
		if name == "" {
			name = DefaultSheetName(len(doc.Sheets) + 1)
		}
		snap = NewBlankSheet(name, DefaultSheetRows, DefaultSheetCols).Snapshot()
	}
	return AddSheet{Index: len(doc.Sheets), Sheet: snap}, nil
}

// DeleteSheetRequest removes the sheet at Index. Deleting the only sheet
// fails with ErrLastSheet. Snapshot is advisory.
type DeleteSheetRequest struct {
	Index    int
	Snapshot *SheetSnapshot
}

func (r DeleteSheetRequest) Kind() OpKind    { return OpDeleteSheet }
func (r DeleteSheetRequest) SheetIndex() int { return r.Index }

func (r DeleteSheetRequest) stale(doc *Document) bool {
	if r.Snapshot == nil {
		return false
	}
	s, ok := doc.Sheet(r.Index)
	if !ok {
		return false
	}
	if s.Name != r.Snapshot.Name || len(s.rows) != len(r.Snapshot.Rows) {
		return true
	}
	for i, row := range s.rows {
		if !cellsEqual(row, r.Snapshot.Rows[i]) {
			return true
		}
	}
	return false
}

func (r DeleteSheetRequest) resolve(doc *Document) (Operation, error) {
	s, ok := doc.Sheet(r.Index)
	if !ok {
		return nil, nil
	}
	if len(doc.Sheets) == 1 {
		return nil, ErrLastSheet
	}
	return DeleteSheet{Index: r.Index, Sheet: s.Snapshot()}, nil
}

// ---------------------------------------------------------------------------
// Committed operations
// ---------------------------------------------------------------------------

// SetCell replaces Old with New at one position.
type SetCell struct {
	Sheet, Row, Col int
	Old, New        CellValue
}

func (op SetCell) Kind() OpKind { return OpSetCell }

func (op SetCell) Inverse() Operation {
	return SetCell{Sheet: op.Sheet, Row: op.Row, Col: op.Col, Old: op.New, New: op.Old}
}

func (op SetCell) apply(doc *Document) Change {
	s, ok := doc.Sheet(op.Sheet)
	if !ok {
		return noChange(op.Sheet)
	}
	if _, ok := s.setCell(op.Row, op.Col, op.New); !ok {
		return noChange(op.Sheet)
	}
	v := op.New
	return Change{Kind: ChangeCell, Sheet: op.Sheet, Cell: &CellDelta{Row: op.Row, Col: op.Col, Value: v}}
}

// AddRow inserts Cells as a row at Index.
type AddRow struct {
	Sheet, Index int
	Cells        []CellValue
}

func (op AddRow) Kind() OpKind { return OpAddRow }

func (op AddRow) Inverse() Operation {
	return DeleteRow{Sheet: op.Sheet, Index: op.Index, Cells: op.Cells}
}

func (op AddRow) apply(doc *Document) Change {
	s, ok := doc.Sheet(op.Sheet)
	if !ok || op.Index < 0 || op.Index > s.RowCount() {
		return noChange(op.Sheet)
	}
	row := s.insertRow(op.Index, op.Cells)
	return Change{
		Kind:    ChangeRowAdded,
		Sheet:   op.Sheet,
		Row:     &LineDelta{Index: op.Index, Cells: append([]CellValue(nil), row...)},
		reindex: s.ID,
	}
}

// DeleteRow removes the row at Index; Cells is its content at commit time.
type DeleteRow struct {
	Sheet, Index int
	Cells        []CellValue
}

func (op DeleteRow) Kind() OpKind { return OpDeleteRow }

func (op DeleteRow) Inverse() Operation {
	return AddRow{Sheet: op.Sheet, Index: op.Index, Cells: op.Cells}
}

func (op DeleteRow) apply(doc *Document) Change {
	s, ok := doc.Sheet(op.Sheet)
	if !ok || op.Index < 0 || op.Index >= s.RowCount() {
		return noChange(op.Sheet)
	}
	s.removeRow(op.Index)
	return Change{
		Kind:    ChangeRowRemoved,
		Sheet:   op.Sheet,
		Row:     &LineDelta{Index: op.Index},
		reindex: s.ID,
	}
}

// AddColumn inserts Cells as a column at Index.
type AddColumn struct {
	Sheet, Index int
	Cells        []CellValue
}

func (op AddColumn) Kind() OpKind { return OpAddColumn }

func (op AddColumn) Inverse() Operation {
	return DeleteColumn{Sheet: op.Sheet, Index: op.Index, Cells: op.Cells}
}

func (op AddColumn) apply(doc *Document) Change {
	s, ok := doc.Sheet(op.Sheet)
	if !ok || op.Index < 0 || op.Index > s.ColumnCount() {
		return noChange(op.Sheet)
	}
	col := s.insertColumn(op.Index, op.Cells)
	return Change{
		Kind:    ChangeColumnAdded,
		Sheet:   op.Sheet,
		Column:  &LineDelta{Index: op.Index, Cells: col},
		reindex: s.ID,
	}
}

// DeleteColumn removes column Index; Cells is its content at commit time.
type DeleteColumn struct {
	Sheet, Index int
	Cells        []CellValue
}

func (op DeleteColumn) Kind() OpKind { return OpDeleteColumn }

func (op DeleteColumn) Inverse() Operation {
	return AddColumn{Sheet: op.Sheet, Index: op.Index, Cells: op.Cells}
}

func (op DeleteColumn) apply(doc *Document) Change {
	s, ok := doc.Sheet(op.Sheet)
	if !ok || op.Index < 0 || op.Index >= s.ColumnCount() {
		return noChange(op.Sheet)
	}
	s.removeColumn(op.Index)
	return Change{
		Kind:    ChangeColumnRemoved,
		Sheet:   op.Sheet,
		Column:  &LineDelta{Index: op.Index},
		reindex: s.ID,
	}
}

// AddSheet inserts a copy of Sheet at Index.
type AddSheet struct {
	Index int
	Sheet SheetSnapshot
}

func (op AddSheet) Kind() OpKind { return OpAddSheet }

func (op AddSheet) Inverse() Operation {
	return DeleteSheet{Index: op.Index, Sheet: op.Sheet}
}

func (op AddSheet) apply(doc *Document) Change {
	if op.Index < 0 || op.Index > len(doc.Sheets) {
		return noChange(op.Index)
	}
	s := op.Sheet.Restore()
	doc.Sheets = append(doc.Sheets, nil)
	copy(doc.Sheets[op.Index+1:], doc.Sheets[op.Index:])
	doc.Sheets[op.Index] = s
	snap := s.Snapshot()
	return Change{Kind: ChangeSheetAdded, Sheet: op.Index, Added: &snap, reindex: s.ID}
}

// DeleteSheet removes the sheet at Index; Sheet is its content at commit time.
type DeleteSheet struct {
	Index int
	Sheet SheetSnapshot
}

func (op DeleteSheet) Kind() OpKind { return OpDeleteSheet }

func (op DeleteSheet) Inverse() Operation {
	return AddSheet{Index: op.Index, Sheet: op.Sheet}
}

func (op DeleteSheet) apply(doc *Document) Change {
	s, ok := doc.Sheet(op.Index)
	if !ok || len(doc.Sheets) == 1 {
		return noChange(op.Index)
	}
	doc.Sheets = append(doc.Sheets[:op.Index], doc.Sheets[op.Index+1:]...)
	return Change{Kind: ChangeSheetRemoved, Sheet: op.Index, Removed: &SheetRef{ID: s.ID, Name: s.Name}}
}

func cellsEqual(a, b []CellValue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
