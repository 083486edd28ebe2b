package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store keyed by name.
type memStore struct {
	mu   sync.Mutex
	docs map[string]*Document
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]*Document)}
}

func (m *memStore) Load(_ context.Context, name string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[name]
	if !ok {
		return nil, fmt.Errorf("%s: not found", name)
	}
	return doc.Clone(), nil
}

func (m *memStore) Store(_ context.Context, name string, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = doc.Clone()
	return nil
}

func (m *memStore) has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[name]
	return ok
}

// runningWorkbook returns a workbook whose reindexer runs until the test ends.
func runningWorkbook(t *testing.T, opts ...Option) *Workbook {
	t.Helper()
	opts = append([]Option{WithReindexer(2, time.Millisecond)}, opts...)
	w := NewWorkbook(opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w
}

func waitIndexed(t *testing.T, w *Workbook) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, w.WaitIndexed(ctx))
}

func TestWorkbook_NoActiveDocument(t *testing.T) {
	w := NewWorkbook(WithFiles(newMemStore()))
	ctx := context.Background()

	calls := map[string]func() error{
		"SetCell":      func() error { _, err := w.SetCell(ctx, 0, 0, 0, String("x"), nil); return err },
		"AddRow":       func() error { _, err := w.AddRow(ctx, 0, 0); return err },
		"DeleteRow":    func() error { _, err := w.DeleteRow(ctx, 0, 0); return err },
		"AddColumn":    func() error { _, err := w.AddColumn(ctx, 0); return err },
		"DeleteColumn": func() error { _, err := w.DeleteColumn(ctx, 0, 0); return err },
		"AddSheet":     func() error { _, err := w.AddSheet(ctx, ""); return err },
		"DeleteSheet":  func() error { _, err := w.DeleteSheet(ctx, 0); return err },
		"Undo":         func() error { _, err := w.Undo(ctx); return err },
		"Redo":         func() error { _, err := w.Redo(ctx); return err },
		"Status":       func() error { _, err := w.Status(ctx); return err },
		"Snapshot":     func() error { _, err := w.Snapshot(ctx); return err },
		"Search":       func() error { _, err := w.Search(ctx, "x", ScopeAllSheets, nil); return err },
		"Save":         func() error { _, err := w.Save(ctx, "out.csv"); return err },
		"Close":        func() error { return w.Close(ctx) },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, call(), ErrNoDocument)
		})
	}
}

func TestWorkbook_SearchScenario(t *testing.T) {
	w := runningWorkbook(t)
	ctx := context.Background()

	w.Init(ctx, fooBarDoc())
	waitIndexed(t, w)

	old := String("foo")
	change, err := w.SetCell(ctx, 0, 0, 0, String("baz"), &old)
	require.NoError(t, err)
	assert.Equal(t, ChangeCell, change.Kind)

	// inline index update: no wait needed
	got, err := w.Search(ctx, "foo", ScopeAllSheets, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = w.Search(ctx, "BAZ", ScopeAllSheets, nil)
	require.NoError(t, err)
	want := []SearchResult{{SheetIndex: 0, SheetName: "Sheet1", Row: 0, Col: 0, Value: "baz", Label: "A1"}}
	assert.Equal(t, want, got)

	st, err := w.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.CanUndo)
	assert.False(t, st.CanRedo)
}

func TestWorkbook_StalenessWindow(t *testing.T) {
	// No reindexer running: the window stays open until Run starts.
	w := NewWorkbook(WithReindexer(1, time.Millisecond))
	ctx := context.Background()

	w.Init(ctx, NewDocument("t", NewSheet("S", [][]CellValue{{String("a")}, {String("b")}})))

	st, err := w.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Sheets[0].IndexStale)
	assert.Equal(t, 1, st.PendingReindex)

	got, err := w.Search(ctx, "a", ScopeCurrentSheet, nil)
	require.NoError(t, err)
	assert.Empty(t, got, "an unbuilt index cannot answer yet")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = w.Run(runCtx) }()
	waitIndexed(t, w)

	st, err = w.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Sheets[0].IndexStale)
	assert.Zero(t, st.PendingReindex)

	got, err = w.Search(ctx, "a", ScopeCurrentSheet, nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestWorkbook_StructuralEditConverges(t *testing.T) {
	w := runningWorkbook(t)
	ctx := context.Background()

	w.Init(ctx, fooBarDoc())
	waitIndexed(t, w)

	_, err := w.DeleteRow(ctx, 0, 0)
	require.NoError(t, err)

	// Inside the window a hit is either missing or correct, never wrong.
	got, err := w.Search(ctx, "bar", ScopeCurrentSheet, nil)
	require.NoError(t, err)
	for _, r := range got {
		assert.Equal(t, "bar", r.Value)
	}

	waitIndexed(t, w)
	got, err = w.Search(ctx, "bar", ScopeCurrentSheet, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A1", got[0].Label)

	_, err = w.Undo(ctx)
	require.NoError(t, err)
	waitIndexed(t, w)

	got, err = w.Search(ctx, "bar", ScopeCurrentSheet, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A2", got[0].Label)
}

func TestWorkbook_RebuildOfRemovedSheetIsAbsorbed(t *testing.T) {
	w := NewWorkbook(WithReindexer(1, time.Millisecond))
	ctx := context.Background()

	w.Init(ctx, twoSheetDoc())
	_, err := w.AddRow(ctx, 1, 0)
	require.NoError(t, err)
	_, err = w.DeleteSheet(ctx, 1)
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = w.Run(runCtx) }()
	waitIndexed(t, w)

	st, err := w.Status(ctx)
	require.NoError(t, err)
	require.Len(t, st.Sheets, 1)
	assert.False(t, st.Sheets[0].IndexStale)
}

func TestWorkbook_ReplacedDocumentAbandonsJobs(t *testing.T) {
	w := NewWorkbook(WithReindexer(1, time.Millisecond))
	ctx := context.Background()

	w.Init(ctx, twoSheetDoc())
	info := w.Init(ctx, fooBarDoc())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = w.Run(runCtx) }()
	waitIndexed(t, w)

	st, err := w.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, info.Session, st.Session)
	assert.False(t, st.CanUndo, "a new document starts with empty history")

	got, err := w.Search(ctx, "foo", ScopeAllSheets, nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestWorkbook_UndoRedoFollowReplayedKind(t *testing.T) {
	w := runningWorkbook(t)
	ctx := context.Background()

	w.Init(ctx, fooBarDoc())
	waitIndexed(t, w)

	change, err := w.AddColumn(ctx, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, change.ReindexSheet())

	change, err = w.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, ChangeColumnRemoved, change.Kind)
	assert.NotEmpty(t, change.ReindexSheet(), "undoing a structural edit is structural")

	_, err = w.SetCell(ctx, 0, 1, 1, Number(5), nil)
	require.NoError(t, err)
	change, err = w.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, ChangeCell, change.Kind)
	assert.Empty(t, change.ReindexSheet(), "undoing a cell edit stays inline")

	change, err = w.Redo(ctx)
	require.NoError(t, err)
	assert.Equal(t, ChangeCell, change.Kind)

	_, err = w.Redo(ctx)
	assert.ErrorIs(t, err, ErrNothingToRedo)
}

func TestWorkbook_ConcurrentAccessConverges(t *testing.T) {
	w := runningWorkbook(t)
	ctx := context.Background()

	w.Init(ctx, NewDocument("big", NewBlankSheet("S", 20, 8), NewBlankSheet("T", 5, 5)))
	waitIndexed(t, w)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				switch i % 5 {
				case 0:
					_, _ = w.AddRow(ctx, 0, i%3)
				case 1:
					_, _ = w.DeleteRow(ctx, 0, g)
				case 2:
					_, _ = w.SetCell(ctx, 0, i%10, g, String(fmt.Sprintf("v%d", g)), nil)
				case 3:
					_, _ = w.Search(ctx, fmt.Sprintf("v%d", g), ScopeAllSheets, nil)
				case 4:
					_, _ = w.Undo(ctx)
				}
			}
		}(g)
	}
	wg.Wait()
	waitIndexed(t, w)

	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, s := range w.engine.Document().Sheets {
		assert.False(t, s.IndexStale(), "sheet %s", s.Name)
		if diff := cmp.Diff(BuildIndex(s.Rows()).Snapshot(), s.Index().Snapshot()); diff != "" {
			t.Errorf("sheet %s index did not converge (-rebuild +live):\n%s", s.Name, diff)
		}
		for _, row := range s.Rows() {
			assert.Len(t, row, s.ColumnCount(), "grid must stay rectangular")
		}
	}
}

func TestWorkbook_OpenAndSave(t *testing.T) {
	files := newMemStore()
	doc := fooBarDoc()
	doc.FileName = "in.csv"
	require.NoError(t, files.Store(context.Background(), "in.csv", doc))

	w := runningWorkbook(t, WithFiles(files))
	ctx := context.Background()

	info, err := w.Open(ctx, "in.csv")
	require.NoError(t, err)
	assert.Equal(t, "in.csv", info.FileName)
	assert.NotEmpty(t, info.Session)

	_, err = w.SetCell(ctx, 0, 0, 1, Number(10), nil)
	require.NoError(t, err)

	saved, err := w.Save(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "in.csv", saved)

	saved, err = w.Save(ctx, "out.csv")
	require.NoError(t, err)
	assert.Equal(t, "out.csv", saved)
	assert.True(t, files.has("out.csv"))

	st, err := w.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "out.csv", st.FileName)

	stored, err := files.Load(ctx, "out.csv")
	require.NoError(t, err)
	v, _ := stored.Sheets[0].Cell(0, 1)
	assert.True(t, v.Equal(Number(10)))
}

func TestWorkbook_OpenFailureIsTyped(t *testing.T) {
	w := NewWorkbook(WithFiles(newMemStore()))

	_, err := w.Open(context.Background(), "missing.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoadFailed))

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "missing.csv", ioErr.Path)

	_, err = w.Status(context.Background())
	assert.ErrorIs(t, err, ErrNoDocument, "a failed open installs nothing")
}

func TestWorkbook_SnapshotAndRecover(t *testing.T) {
	snaps := newMemStore()
	w := runningWorkbook(t, WithSnapshots(snaps))
	ctx := context.Background()

	info := w.Init(ctx, fooBarDoc())

	key, err := w.SnapshotIfDirty(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, key, "an unchanged document is not snapshotted")

	_, err = w.AddSheet(ctx, "Extra")
	require.NoError(t, err)

	key, err = w.SnapshotIfDirty(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, info.Session, key)

	key, err = w.SnapshotIfDirty(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, key)

	require.NoError(t, w.Close(ctx))

	recovered, err := w.Recover(ctx, info.Session)
	require.NoError(t, err)
	require.Len(t, recovered.Sheets, 2)
	assert.Equal(t, "Extra", recovered.Sheets[1].Name)
}

func TestWorkbook_RecoverWithoutStore(t *testing.T) {
	w := NewWorkbook()
	_, err := w.Recover(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNoSnapshotStore)
}

func TestWorkbook_InitDegenerateDocuments(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantNames []string
		wantCols  []int
	}{
		{"null sheet", `{"file_name":"x","sheets":[null]}`, []string{"Sheet1"}, []int{DefaultSheetCols}},
		{"no sheets", `{"file_name":"x","sheets":[]}`, []string{"Sheet1"}, []int{DefaultSheetCols}},
		{"null among sheets", `{"sheets":[null,{"name":"A","rows":[["foo"]]},null]}`, []string{"A"}, []int{1}},
		{"duplicate ids", `{"sheets":[{"id":"s1","name":"A","rows":[["foo"]]},{"id":"s1","name":"B","rows":[["foo"]]}]}`, []string{"A", "B"}, []int{1, 1}},
		{"ragged rows", `{"sheets":[{"name":"R","rows":[["a"],["b","c","d"],[]]}]}`, []string{"R"}, []int{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc Document
			require.NoError(t, json.Unmarshal([]byte(tt.body), &doc))

			w := runningWorkbook(t)
			ctx := context.Background()
			w.Init(ctx, &doc)
			waitIndexed(t, w)

			st, err := w.Status(ctx)
			require.NoError(t, err)
			require.Len(t, st.Sheets, len(tt.wantNames))

			ids := make(map[string]bool)
			for i, s := range st.Sheets {
				assert.Equal(t, tt.wantNames[i], s.Name)
				assert.Equal(t, tt.wantCols[i], s.Columns)
				assert.False(t, s.IndexStale, "sheet %d never indexed", i)
				assert.NotEmpty(t, s.ID)
				ids[s.ID] = true
			}
			assert.Len(t, ids, len(st.Sheets), "sheet ids must be unique")
		})
	}
}

func TestWorkbook_DuplicateIDsAreAllSearchable(t *testing.T) {
	var doc Document
	body := `{"sheets":[{"id":"s1","name":"A","rows":[["foo"]]},{"id":"s1","name":"B","rows":[["x","foo"]]}]}`
	require.NoError(t, json.Unmarshal([]byte(body), &doc))

	w := runningWorkbook(t)
	ctx := context.Background()
	w.Init(ctx, &doc)
	waitIndexed(t, w)

	results, err := w.Search(ctx, "foo", ScopeAllSheets, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestWorkbook_InitNilSheetsDirectly(t *testing.T) {
	w := runningWorkbook(t)
	ctx := context.Background()

	info := w.Init(ctx, &Document{FileName: "raw", Sheets: []*Sheet{nil}})
	require.Len(t, info.Sheets, 1)

	_, err := w.Status(ctx)
	require.NoError(t, err)
	_, err = w.AddRow(ctx, 0, AppendRow)
	require.NoError(t, err)

	info = w.Init(ctx, nil)
	assert.Len(t, info.Sheets, 1)
}

func TestWorkbook_AddSheetCopyIsIndexed(t *testing.T) {
	w := runningWorkbook(t)
	ctx := context.Background()
	w.Init(ctx, NewDocument("one.json", NewSheet("Sheet1", [][]CellValue{{String("foo")}})))
	waitIndexed(t, w)

	doc, err := w.Snapshot(ctx)
	require.NoError(t, err)
	snap := doc.Sheets[0].Snapshot()

	_, err = w.Execute(ctx, AddSheetRequest{Snapshot: &snap})
	require.NoError(t, err)
	waitIndexed(t, w)

	st, err := w.Status(ctx)
	require.NoError(t, err)
	require.Len(t, st.Sheets, 2)
	assert.NotEqual(t, st.Sheets[0].ID, st.Sheets[1].ID)
	assert.False(t, st.Sheets[1].IndexStale)

	results, err := w.Search(ctx, "foo", ScopeAllSheets, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

// panicRequest blows up while the write lock is held.
type panicRequest struct{}

func (panicRequest) Kind() OpKind                         { return OpSetCell }
func (panicRequest) SheetIndex() int                      { return 0 }
func (panicRequest) resolve(*Document) (Operation, error) { panic("boom") }

func TestWorkbook_PanicReleasesLock(t *testing.T) {
	w := runningWorkbook(t)
	ctx := context.Background()
	w.Init(ctx, fooBarDoc())

	func() {
		defer func() { assert.NotNil(t, recover()) }()
		_, _ = w.Execute(ctx, panicRequest{})
	}()

	done := make(chan error, 1)
	go func() {
		_, err := w.Status(ctx)
		done <- err
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Status blocked after a panicking operation")
	}
}
