package core

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestInvertedIndex_Rebuild(t *testing.T) {
	rows := [][]CellValue{
		{String("Foo"), Number(1), Null()},
		{String("foo"), Bool(true), String("")},
	}
	ix := BuildIndex(rows)

	want := map[string][]Position{
		"foo":  {{0, 0}, {1, 0}},
		"1":    {{0, 1}},
		"true": {{1, 1}},
	}
	if diff := cmp.Diff(want, ix.Snapshot()); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}
	if got := ix.Lookup(""); got != nil {
		t.Errorf("Lookup(\"\") = %v, want nil", got)
	}
}

func TestInvertedIndex_UpdateOne(t *testing.T) {
	ix := BuildIndex([][]CellValue{{String("foo"), Number(1)}, {String("bar"), Number(2)}})

	ix.UpdateOne(0, 0, String("foo"), String("baz"))

	if got := ix.Lookup("foo"); got != nil {
		t.Errorf("foo still indexed at %v", got)
	}
	if diff := cmp.Diff([]Position{{0, 0}}, ix.Lookup("baz")); diff != "" {
		t.Errorf("baz (-want +got):\n%s", diff)
	}
	if _, ok := ix.Snapshot()["foo"]; ok {
		t.Error("empty bucket for foo was not dropped")
	}
}

func TestInvertedIndex_UpdateOneSameToken(t *testing.T) {
	ix := BuildIndex([][]CellValue{{String("Foo")}})
	before := ix.Snapshot()

	ix.UpdateOne(0, 0, String("Foo"), String("FOO"))

	if diff := cmp.Diff(before, ix.Snapshot()); diff != "" {
		t.Errorf("case-only change altered the index (-before +after):\n%s", diff)
	}
}

func TestInvertedIndex_UpdateOneToAndFromNull(t *testing.T) {
	ix := BuildIndex([][]CellValue{{Null(), String("x")}})

	ix.UpdateOne(0, 0, Null(), String("x"))
	if diff := cmp.Diff([]Position{{0, 0}, {0, 1}}, ix.Lookup("x")); diff != "" {
		t.Errorf("after fill (-want +got):\n%s", diff)
	}

	ix.UpdateOne(0, 1, String("x"), Null())
	if diff := cmp.Diff([]Position{{0, 0}}, ix.Lookup("x")); diff != "" {
		t.Errorf("after clear (-want +got):\n%s", diff)
	}
}

// Tracking every cell edit with UpdateOne must end in the same index a full
// rebuild produces.
func TestInvertedIndex_IncrementalMatchesRebuild(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vocab := []CellValue{Null(), String("a"), String("A"), String("b"), Number(1), Number(2), Bool(true), String("")}

	const rows, cols = 6, 4
	grid := make([][]CellValue, rows)
	for r := range grid {
		grid[r] = make([]CellValue, cols)
		for c := range grid[r] {
			grid[r][c] = vocab[rng.Intn(len(vocab))]
		}
	}
	ix := BuildIndex(grid)

	for i := 0; i < 500; i++ {
		r, c := rng.Intn(rows), rng.Intn(cols)
		next := vocab[rng.Intn(len(vocab))]
		ix.UpdateOne(r, c, grid[r][c], next)
		grid[r][c] = next
	}

	if diff := cmp.Diff(BuildIndex(grid).Snapshot(), ix.Snapshot()); diff != "" {
		t.Errorf("incremental index diverged from rebuild (-rebuild +incremental):\n%s", diff)
	}
}
