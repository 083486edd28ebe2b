package core

// index.go implements the per-sheet inverted index.
//
// Tokens are whole, case-folded cell texts. Each token maps to the set of
// positions currently holding it. Two maintenance paths exist:
//
//   - Rebuild: O(rows x cols), the only correct recovery after a row, column
//     or sheet is inserted or removed (every position may have shifted).
//   - UpdateOne: O(bucket), valid only for a single cell changing in place.

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Position is a zero-based cell coordinate within one sheet.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// InvertedIndex maps a normalized token to the positions holding it.
// It is not safe for concurrent use; the Workbook lock guards it.
type InvertedIndex struct {
	buckets map[string]mapset.Set[Position]
}

// NewInvertedIndex returns an empty index.
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{buckets: make(map[string]mapset.Set[Position])}
}

// BuildIndex returns a fresh index over rows.
func BuildIndex(rows [][]CellValue) *InvertedIndex {
	ix := NewInvertedIndex()
	ix.Rebuild(rows)
	return ix
}

// Rebuild discards every bucket and recomputes the index from rows.
func (ix *InvertedIndex) Rebuild(rows [][]CellValue) {
	ix.buckets = make(map[string]mapset.Set[Position], len(ix.buckets))
	for r, row := range rows {
		for c, v := range row {
			ix.add(Normalize(v), Position{Row: r, Col: c})
		}
	}
}

// UpdateOne moves (row, col) from old's bucket to new's bucket. It is a no-op
// when both values normalize to the same token.
func (ix *InvertedIndex) UpdateOne(row, col int, old, new CellValue) {
	oldTok, newTok := Normalize(old), Normalize(new)
	if oldTok == newTok {
		return
	}
	pos := Position{Row: row, Col: col}
	ix.remove(oldTok, pos)
	ix.add(newTok, pos)
}

func (ix *InvertedIndex) add(token string, pos Position) {
	if token == "" {
		return
	}
	bucket, ok := ix.buckets[token]
	if !ok {
		bucket = mapset.NewThreadUnsafeSet[Position]()
		ix.buckets[token] = bucket
	}
	bucket.Add(pos)
}

func (ix *InvertedIndex) remove(token string, pos Position) {
	if token == "" {
		return
	}
	bucket, ok := ix.buckets[token]
	if !ok {
		return
	}
	bucket.Remove(pos)
	if bucket.Cardinality() == 0 {
		delete(ix.buckets, token)
	}
}

// Lookup returns the positions for an already-normalized token in row-major
// order. An unknown or empty token yields nil.
func (ix *InvertedIndex) Lookup(token string) []Position {
	bucket, ok := ix.buckets[token]
	if !ok {
		return nil
	}
	return sortedPositions(bucket.ToSlice())
}

// Tokens returns the number of distinct tokens.
func (ix *InvertedIndex) Tokens() int {
	return len(ix.buckets)
}

// Snapshot returns a copy of the index as plain sorted slices, suitable for
// comparison and debugging.
func (ix *InvertedIndex) Snapshot() map[string][]Position {
	out := make(map[string][]Position, len(ix.buckets))
	for tok, bucket := range ix.buckets {
		out[tok] = sortedPositions(bucket.ToSlice())
	}
	return out
}

func sortedPositions(ps []Position) []Position {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Row != ps[j].Row {
			return ps[i].Row < ps[j].Row
		}
		return ps[i].Col < ps[j].Col
	})
	return ps
}
