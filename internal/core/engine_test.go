package core

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fooBarDoc() *Document {
	s := NewSheet("Sheet1", [][]CellValue{
		{String("foo"), Number(1)},
		{String("bar"), Number(2)},
	})
	doc := NewDocument("test.csv", s)
	doc.RebuildIndexes()
	return doc
}

func twoSheetDoc() *Document {
	a := NewSheet("Alpha", [][]CellValue{
		{String("foo"), Number(1), Bool(true)},
		{String("bar"), Number(2), Null()},
		{String("baz"), Number(3), Bool(false)},
	})
	b := NewSheet("Beta", [][]CellValue{{String("x")}, {String("y")}})
	doc := NewDocument("two.json", a, b)
	doc.RebuildIndexes()
	return doc
}

func TestEngine_RoundTripLaws(t *testing.T) {
	requests := []Request{
		SetCellRequest{Sheet: 0, Row: 1, Col: 2, Value: String("new")},
		AddRowRequest{Sheet: 0, Index: 0},
		AddRowRequest{Sheet: 0, Index: 3},
		DeleteRowRequest{Sheet: 0, Index: 1},
		AddColumnRequest{Sheet: 1},
		DeleteColumnRequest{Sheet: 0, Index: 1},
		DeleteColumnRequest{Sheet: 1, Index: 0},
		AddSheetRequest{},
		AddSheetRequest{Name: "Gamma"},
		DeleteSheetRequest{Index: 0},
		DeleteSheetRequest{Index: 1},
	}

	for _, req := range requests {
		t.Run(string(req.Kind()), func(t *testing.T) {
			e := NewEngine(twoSheetDoc())
			before := e.Document().Content()

			change, err := e.Execute(req)
			require.NoError(t, err)
			require.True(t, change.Applied(), "request should change the document")
			after := e.Document().Content()

			_, err = e.Undo()
			require.NoError(t, err)
			if diff := cmp.Diff(before, e.Document().Content()); diff != "" {
				t.Errorf("undo did not restore the document (-before +undone):\n%s", diff)
			}

			_, err = e.Redo()
			require.NoError(t, err)
			if diff := cmp.Diff(after, e.Document().Content()); diff != "" {
				t.Errorf("redo did not replay the edit (-after +redone):\n%s", diff)
			}
		})
	}
}

func TestEngine_UndoChainRestoresOriginal(t *testing.T) {
	e := NewEngine(twoSheetDoc())
	original := e.Document().Content()

	steps := []Request{
		AddColumnRequest{Sheet: 0},
		SetCellRequest{Sheet: 0, Row: 0, Col: 3, Value: Number(9)},
		DeleteRowRequest{Sheet: 0, Index: 0},
		AddSheetRequest{},
		DeleteSheetRequest{Index: 1},
		DeleteColumnRequest{Sheet: 0, Index: 0},
		AddRowRequest{Sheet: 0, Index: 1},
	}
	for _, req := range steps {
		_, err := e.Execute(req)
		require.NoError(t, err)
	}

	for e.CanUndo() {
		_, err := e.Undo()
		require.NoError(t, err)
	}
	if diff := cmp.Diff(original, e.Document().Content()); diff != "" {
		t.Errorf("undoing everything did not restore the document (-want +got):\n%s", diff)
	}
	assert.True(t, e.CanRedo())
}

func TestEngine_SetCellScenario(t *testing.T) {
	e := NewEngine(fooBarDoc())

	old := String("foo")
	change, err := e.Execute(SetCellRequest{Sheet: 0, Row: 0, Col: 0, Old: &old, Value: String("baz")})
	require.NoError(t, err)

	assert.Equal(t, ChangeCell, change.Kind)
	require.NotNil(t, change.Cell)
	assert.Equal(t, 0, change.Cell.Row)
	assert.Equal(t, 0, change.Cell.Col)

	ix := e.Document().Sheets[0].Index()
	assert.Nil(t, ix.Lookup("foo"))
	assert.Equal(t, []Position{{Row: 0, Col: 0}}, ix.Lookup("baz"))
	assert.False(t, e.Document().Sheets[0].IndexStale(), "cell edits must not open a staleness window")
}

func TestEngine_SetCellIgnoresAdvisoryOld(t *testing.T) {
	e := NewEngine(fooBarDoc())

	stale := String("something else")
	_, err := e.Execute(SetCellRequest{Sheet: 0, Row: 0, Col: 0, Old: &stale, Value: String("baz")})
	require.NoError(t, err)

	op, ok := e.PeekUndo()
	require.True(t, ok)
	assert.True(t, op.(SetCell).Old.Equal(String("foo")), "recorded old value must come from the document")

	_, err = e.Undo()
	require.NoError(t, err)
	v, _ := e.Document().Sheets[0].Cell(0, 0)
	assert.True(t, v.Equal(String("foo")))
}

func TestEngine_SetCellSameValueIsNoop(t *testing.T) {
	e := NewEngine(fooBarDoc())

	change, err := e.Execute(SetCellRequest{Sheet: 0, Row: 0, Col: 0, Value: String("foo")})
	require.NoError(t, err)
	assert.Equal(t, ChangeNone, change.Kind)
	assert.False(t, e.CanUndo(), "a no-op must not be recorded")
}

func TestEngine_AddColumnRecordsRealIndex(t *testing.T) {
	e := NewEngine(fooBarDoc())

	change, err := e.Execute(AddColumnRequest{Sheet: 0})
	require.NoError(t, err)
	require.NotNil(t, change.Column)
	assert.Equal(t, 2, change.Column.Index)

	op, _ := e.PeekUndo()
	inv, ok := op.Inverse().(DeleteColumn)
	require.True(t, ok)
	assert.Equal(t, 2, inv.Index, "inverse must target the appended column, not column 0")

	_, err = e.Undo()
	require.NoError(t, err)

	s := e.Document().Sheets[0]
	assert.Equal(t, 2, s.ColumnCount())
	want := [][]CellValue{{String("foo"), Number(1)}, {String("bar"), Number(2)}}
	if diff := cmp.Diff(want, s.Rows()); diff != "" {
		t.Errorf("rows after undo (-want +got):\n%s", diff)
	}
}

func TestEngine_DeleteRowUndoRestoresContent(t *testing.T) {
	e := NewEngine(fooBarDoc())

	_, err := e.Execute(DeleteRowRequest{Sheet: 0, Index: 1, Captured: []CellValue{Null(), Null()}})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Document().Sheets[0].RowCount())

	change, err := e.Undo()
	require.NoError(t, err)
	assert.Equal(t, ChangeRowAdded, change.Kind)
	assert.Equal(t, 1, change.Row.Index)

	row := e.Document().Sheets[0].Rows()[1]
	if diff := cmp.Diff([]CellValue{String("bar"), Number(2)}, row); diff != "" {
		t.Errorf("restored row (-want +got):\n%s", diff)
	}
}

func TestEngine_DeleteLastSheetFails(t *testing.T) {
	e := NewEngine(fooBarDoc())
	before := e.Document().Content()

	change, err := e.Execute(DeleteSheetRequest{Index: 0})
	assert.True(t, errors.Is(err, ErrLastSheet))
	assert.Equal(t, ChangeNone, change.Kind)
	assert.False(t, e.CanUndo())
	if diff := cmp.Diff(before, e.Document().Content()); diff != "" {
		t.Errorf("document changed (-before +after):\n%s", diff)
	}
}

func TestEngine_DeleteSheetUndoKeepsPosition(t *testing.T) {
	doc := twoSheetDoc()
	doc.Sheets = append(doc.Sheets, NewBlankSheet("Gamma", 1, 1))
	e := NewEngine(doc)

	_, err := e.Execute(DeleteSheetRequest{Index: 0})
	require.NoError(t, err)
	assert.Equal(t, "Beta", e.Document().Sheets[0].Name)

	_, err = e.Undo()
	require.NoError(t, err)

	names := []string{}
	for _, s := range e.Document().Sheets {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, names)
}

func TestEngine_AddSheetDefaults(t *testing.T) {
	e := NewEngine(fooBarDoc())

	change, err := e.Execute(AddSheetRequest{})
	require.NoError(t, err)
	assert.Equal(t, ChangeSheetAdded, change.Kind)
	assert.Equal(t, 1, change.Sheet)

	s := e.Document().Sheets[1]
	assert.Equal(t, "Sheet2", s.Name)
	assert.Equal(t, DefaultSheetRows, s.RowCount())
	assert.Equal(t, DefaultSheetCols, s.ColumnCount())
}

func TestEngine_OutOfRangeIsNoop(t *testing.T) {
	requests := []Request{
		SetCellRequest{Sheet: 0, Row: 99, Col: 0, Value: String("x")},
		SetCellRequest{Sheet: 5, Row: 0, Col: 0, Value: String("x")},
		SetCellRequest{Sheet: 0, Row: -1, Col: 0, Value: String("x")},
		AddRowRequest{Sheet: 0, Index: 3},
		AddRowRequest{Sheet: -1, Index: 0},
		AddRowRequest{Sheet: 0, Index: -2},
		AddRowRequest{Sheet: 7, Index: AppendRow},
		DeleteRowRequest{Sheet: 0, Index: 2},
		AddColumnRequest{Sheet: 9},
		DeleteColumnRequest{Sheet: 0, Index: 2},
		DeleteSheetRequest{Index: 4},
	}

	for _, req := range requests {
		e := NewEngine(fooBarDoc())
		before := e.Document().Content()

		change, err := e.Execute(req)
		require.NoError(t, err, "%T %+v", req, req)
		assert.Equal(t, ChangeNone, change.Kind, "%T %+v", req, req)
		assert.False(t, e.CanUndo())
		if diff := cmp.Diff(before, e.Document().Content()); diff != "" {
			t.Errorf("%T %+v changed the document:\n%s", req, req, diff)
		}
	}
}

func TestEngine_NothingToUndoRedo(t *testing.T) {
	e := NewEngine(fooBarDoc())

	_, err := e.Undo()
	assert.ErrorIs(t, err, ErrNothingToUndo)
	_, err = e.Redo()
	assert.ErrorIs(t, err, ErrNothingToRedo)
}

func TestEngine_NewEditClearsRedo(t *testing.T) {
	e := NewEngine(fooBarDoc())

	_, err := e.Execute(SetCellRequest{Sheet: 0, Row: 0, Col: 0, Value: String("a")})
	require.NoError(t, err)
	_, err = e.Undo()
	require.NoError(t, err)
	require.True(t, e.CanRedo())

	_, err = e.Execute(SetCellRequest{Sheet: 0, Row: 0, Col: 1, Value: String("b")})
	require.NoError(t, err)
	assert.False(t, e.CanRedo())
	assert.True(t, e.CanUndo())
}

func TestEngine_HistoryIsNotAliasedToDocument(t *testing.T) {
	e := NewEngine(fooBarDoc())

	_, err := e.Execute(AddRowRequest{Sheet: 0, Index: 0})
	require.NoError(t, err)
	_, err = e.Execute(SetCellRequest{Sheet: 0, Row: 0, Col: 0, Value: String("filled")})
	require.NoError(t, err)

	h := e.History()
	require.Len(t, h, 2)
	for _, v := range h[0].(AddRow).Cells {
		assert.True(t, v.IsNull(), "recorded row must not follow later edits")
	}
}

func TestEngine_StructuralChangeRequestsReindex(t *testing.T) {
	e := NewEngine(fooBarDoc())
	id := e.Document().Sheets[0].ID

	change, err := e.Execute(AddRowRequest{Sheet: 0, Index: 0})
	require.NoError(t, err)
	assert.Equal(t, id, change.ReindexSheet())
	assert.True(t, e.Document().Sheets[0].IndexStale())

	change, err = e.Execute(SetCellRequest{Sheet: 0, Row: 1, Col: 0, Value: String("q")})
	require.NoError(t, err)
	assert.Empty(t, change.ReindexSheet())
}

func TestEngine_AppendRowResolvesAtExecute(t *testing.T) {
	e := NewEngine(fooBarDoc())

	// The append target moves with the sheet between requests.
	_, err := e.Execute(DeleteRowRequest{Sheet: 0, Index: 0})
	require.NoError(t, err)

	change, err := e.Execute(AddRowRequest{Sheet: 0, Index: AppendRow})
	require.NoError(t, err)
	require.Equal(t, ChangeRowAdded, change.Kind)
	assert.Equal(t, 1, change.Row.Index)
	assert.Equal(t, 2, e.Document().Sheets[0].RowCount())

	h := e.History()
	assert.Equal(t, 1, h[len(h)-1].(AddRow).Index, "history records the real index")
}

func TestEngine_AddSheetCopyGetsNewID(t *testing.T) {
	e := NewEngine(fooBarDoc())
	orig := e.Document().Sheets[0]
	snap := orig.Snapshot()

	_, err := e.Execute(AddSheetRequest{Snapshot: &snap})
	require.NoError(t, err)
	require.Len(t, e.Document().Sheets, 2)

	copied := e.Document().Sheets[1]
	assert.NotEqual(t, orig.ID, copied.ID)
	if diff := cmp.Diff(snap.Rows, copied.Rows()); diff != "" {
		t.Errorf("copy content mismatch:\n%s", diff)
	}

	_, err = e.Undo()
	require.NoError(t, err)
	_, err = e.Redo()
	require.NoError(t, err)
	assert.Equal(t, copied.ID, e.Document().Sheets[1].ID, "redo restores the same copy")
}

func TestEngine_DeleteSheetUndoKeepsID(t *testing.T) {
	e := NewEngine(twoSheetDoc())
	id := e.Document().Sheets[1].ID

	_, err := e.Execute(DeleteSheetRequest{Index: 1})
	require.NoError(t, err)
	_, err = e.Undo()
	require.NoError(t, err)

	assert.Equal(t, id, e.Document().Sheets[1].ID)
}

func TestRequest_Stale(t *testing.T) {
	doc := twoSheetDoc()
	live := doc.Sheets[0]
	old := String("foo")
	wrong := String("nope")
	beta := doc.Sheets[1].Snapshot()
	renamed := beta
	renamed.Name = "Gamma"

	tests := []struct {
		name string
		req  advisoryRequest
		want bool
	}{
		{"set cell without old", SetCellRequest{Sheet: 0, Row: 0, Col: 0, Value: String("x")}, false},
		{"set cell matching old", SetCellRequest{Sheet: 0, Row: 0, Col: 0, Old: &old, Value: String("x")}, false},
		{"set cell stale old", SetCellRequest{Sheet: 0, Row: 0, Col: 0, Old: &wrong, Value: String("x")}, true},
		{"set cell out of range", SetCellRequest{Sheet: 0, Row: 9, Col: 0, Old: &wrong}, false},
		{"delete row matching", DeleteRowRequest{Sheet: 0, Index: 1, Captured: live.Rows()[1]}, false},
		{"delete row stale", DeleteRowRequest{Sheet: 0, Index: 1, Captured: []CellValue{String("bar")}}, true},
		{"delete column matching", DeleteColumnRequest{Sheet: 0, Index: 1, Captured: []CellValue{Number(1), Number(2), Number(3)}}, false},
		{"delete column stale", DeleteColumnRequest{Sheet: 0, Index: 1, Captured: []CellValue{Number(1), Number(2), Number(4)}}, true},
		{"delete sheet matching", DeleteSheetRequest{Index: 1, Snapshot: &beta}, false},
		{"delete sheet stale", DeleteSheetRequest{Index: 1, Snapshot: &renamed}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.stale(doc); got != tt.want {
				t.Errorf("stale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngine_StaleCaptureRecordsLiveRow(t *testing.T) {
	e := NewEngine(fooBarDoc())

	_, err := e.Execute(DeleteRowRequest{Sheet: 0, Index: 0, Captured: []CellValue{String("stale")}})
	require.NoError(t, err)

	h := e.History()
	require.Len(t, h, 1)
	assert.Equal(t, []CellValue{String("foo"), Number(1)}, h[0].(DeleteRow).Cells)
}
