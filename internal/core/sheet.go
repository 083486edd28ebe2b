package core

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Default shape of a sheet synthesized by AddSheet.
const (
	DefaultSheetRows = 5
	DefaultSheetCols = 5
)

// DefaultSheetName returns the name given to the n-th sheet (1-based).
func DefaultSheetName(n int) string {
	return fmt.Sprintf("Sheet%d", n)
}

// Sheet is a named rectangular grid of cells with its derived inverted index.
//
// Every row has exactly ColumnCount cells. The width is tracked separately so
// a sheet with no rows still has a column count.
type Sheet struct {
	// ID is stable for the life of the sheet, including across a delete and
	// its undo. Background reindex jobs address sheets by ID, not position.
	ID   string
	Name string

	rows  [][]CellValue
	cols  int
	index *InvertedIndex

	// revision counts structural changes; the index is current when
	// indexedRevision has caught up with it.
	revision        uint64
	indexedRevision uint64
}

// NewSheet builds a sheet from rows, padding ragged rows with Null to the
// widest row. The sheet takes ownership of rows. Its index starts stale.
func NewSheet(name string, rows [][]CellValue) *Sheet {
	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	for i, row := range rows {
		if len(row) < cols {
			padded := make([]CellValue, cols)
			copy(padded, row)
			rows[i] = padded
		}
	}
	if rows == nil {
		rows = [][]CellValue{}
	}
	return &Sheet{
		ID:       uuid.New().String(),
		Name:     name,
		rows:     rows,
		cols:     cols,
		index:    NewInvertedIndex(),
		revision: 1,
	}
}

// NewBlankSheet returns a rows x cols sheet of Null cells. An all-Null grid
// has an empty index, so it starts indexed.
func NewBlankSheet(name string, rows, cols int) *Sheet {
	grid := make([][]CellValue, rows)
	for i := range grid {
		grid[i] = make([]CellValue, cols)
	}
	s := NewSheet(name, grid)
	s.cols = cols
	s.indexedRevision = s.revision
	return s
}

func (s *Sheet) RowCount() int { return len(s.rows) }

func (s *Sheet) ColumnCount() int { return s.cols }

// Cell returns the value at (row, col) and whether it is in range.
func (s *Sheet) Cell(row, col int) (CellValue, bool) {
	if row < 0 || row >= len(s.rows) || col < 0 || col >= s.cols {
		return Null(), false
	}
	return s.rows[row][col], true
}

// Rows exposes the grid for read-only traversal by codecs. Callers must not
// modify it.
func (s *Sheet) Rows() [][]CellValue { return s.rows }

// Index returns the sheet's inverted index, which may be stale.
func (s *Sheet) Index() *InvertedIndex { return s.index }

// IndexStale reports whether a structural change has not been reindexed yet.
func (s *Sheet) IndexStale() bool { return s.indexedRevision != s.revision }

// RebuildIndex recomputes the index from rows and marks it current.
func (s *Sheet) RebuildIndex() {
	s.index.Rebuild(s.rows)
	s.indexedRevision = s.revision
}

func (s *Sheet) touchStructure() { s.revision++ }

// setCell writes v and returns the previous value. The index is updated in
// place. Out-of-range coordinates are ignored.
func (s *Sheet) setCell(row, col int, v CellValue) (CellValue, bool) {
	old, ok := s.Cell(row, col)
	if !ok {
		return old, false
	}
	s.rows[row][col] = v
	s.index.UpdateOne(row, col, old, v)
	return old, true
}

// insertRow inserts cells at index; nil cells means a row of Null.
func (s *Sheet) insertRow(index int, cells []CellValue) []CellValue {
	row := make([]CellValue, s.cols)
	copy(row, cells)
	s.rows = append(s.rows, nil)
	copy(s.rows[index+1:], s.rows[index:])
	s.rows[index] = row
	s.touchStructure()
	return row
}

func (s *Sheet) removeRow(index int) []CellValue {
	row := s.rows[index]
	s.rows = append(s.rows[:index], s.rows[index+1:]...)
	s.touchStructure()
	return row
}

// insertColumn inserts one cell per row at index; missing values are Null.
func (s *Sheet) insertColumn(index int, cells []CellValue) []CellValue {
	inserted := make([]CellValue, len(s.rows))
	for r, row := range s.rows {
		var v CellValue
		if r < len(cells) {
			v = cells[r]
		}
		row = append(row, Null())
		copy(row[index+1:], row[index:])
		row[index] = v
		s.rows[r] = row
		inserted[r] = v
	}
	s.cols++
	s.touchStructure()
	return inserted
}

func (s *Sheet) removeColumn(index int) []CellValue {
	removed := make([]CellValue, len(s.rows))
	for r, row := range s.rows {
		removed[r] = row[index]
		s.rows[r] = append(row[:index], row[index+1:]...)
	}
	s.cols--
	s.touchStructure()
	return removed
}

// SheetSnapshot is a full, detached copy of a sheet's content.
type SheetSnapshot struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Columns int           `json:"columns"`
	Rows    [][]CellValue `json:"rows"`
}

// Snapshot returns a deep copy of the sheet's content.
func (s *Sheet) Snapshot() SheetSnapshot {
	return SheetSnapshot{ID: s.ID, Name: s.Name, Columns: s.cols, Rows: copyRows(s.rows)}
}

// Restore materializes a snapshot as a sheet with the same ID. The index is
// left stale. Undo relies on the ID surviving; callers adding a copy next to
// the original must give it a new one.
func (snap SheetSnapshot) Restore() *Sheet {
	rows := copyRows(snap.Rows)
	s := NewSheet(snap.Name, rows)
	if snap.ID != "" {
		s.ID = snap.ID
	}
	if snap.Columns > s.cols && len(rows) == 0 {
		s.cols = snap.Columns
	}
	return s
}

func (s *Sheet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

func (s *Sheet) UnmarshalJSON(data []byte) error {
	var snap SheetSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	*s = *snap.Restore()
	return nil
}

func copyRows(rows [][]CellValue) [][]CellValue {
	out := make([][]CellValue, len(rows))
	for i, row := range rows {
		out[i] = append([]CellValue(nil), row...)
	}
	return out
}

// Document is an ordered, non-empty list of sheets.
type Document struct {
	FileName string   `json:"file_name"`
	Sheets   []*Sheet `json:"sheets"`
}

// NewDocument returns a document over sheets. Nil sheets are dropped and a
// sheet whose ID is empty or already taken gets a fresh one, since reindex
// jobs find sheets by ID. With no sheets left it gets one blank default
// sheet, keeping the at-least-one-sheet invariant.
func NewDocument(fileName string, sheets ...*Sheet) *Document {
	kept := make([]*Sheet, 0, len(sheets))
	seen := make(map[string]struct{}, len(sheets))
	for _, s := range sheets {
		if s == nil {
			continue
		}
		if _, dup := seen[s.ID]; dup || s.ID == "" {
			s.ID = uuid.New().String()
		}
		seen[s.ID] = struct{}{}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		kept = []*Sheet{NewBlankSheet(DefaultSheetName(1), DefaultSheetRows, DefaultSheetCols)}
	}
	return &Document{FileName: fileName, Sheets: kept}
}

// Sheet returns the sheet at index i and whether it exists.
func (d *Document) Sheet(i int) (*Sheet, bool) {
	if i < 0 || i >= len(d.Sheets) {
		return nil, false
	}
	return d.Sheets[i], true
}

// SheetByID returns the current position of the sheet with id, or -1.
func (d *Document) SheetByID(id string) (int, *Sheet) {
	for i, s := range d.Sheets {
		if s.ID == id {
			return i, s
		}
	}
	return -1, nil
}

// Clone returns a deep copy whose sheets keep their IDs. Indexes are not
// copied; the clone's sheets start stale.
func (d *Document) Clone() *Document {
	sheets := make([]*Sheet, len(d.Sheets))
	for i, s := range d.Sheets {
		sheets[i] = s.Snapshot().Restore()
	}
	return &Document{FileName: d.FileName, Sheets: sheets}
}

// Content returns a snapshot of every sheet, in order.
func (d *Document) Content() []SheetSnapshot {
	out := make([]SheetSnapshot, len(d.Sheets))
	for i, s := range d.Sheets {
		out[i] = s.Snapshot()
	}
	return out
}

// RebuildIndexes rebuilds every sheet's index synchronously.
func (d *Document) RebuildIndexes() {
	for _, s := range d.Sheets {
		s.RebuildIndex()
	}
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		FileName string   `json:"file_name"`
		Sheets   []*Sheet `json:"sheets"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = *NewDocument(raw.FileName, raw.Sheets...)
	return nil
}
