package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// SearchScope selects which sheets a search covers.
type SearchScope string

const (
	ScopeCurrentSheet SearchScope = "current"
	ScopeAllSheets    SearchScope = "all"
)

// ParseScope accepts "current", "all" or "" (current).
func ParseScope(s string) (SearchScope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "current", "current_sheet", "sheet":
		return ScopeCurrentSheet, nil
	case "all", "all_sheets":
		return ScopeAllSheets, nil
	default:
		return "", fmt.Errorf("unknown search scope %q", s)
	}
}

// SearchResult is one matching cell.
type SearchResult struct {
	SheetIndex int    `json:"sheet_index"`
	SheetName  string `json:"sheet_name"`
	Row        int    `json:"row"`
	Col        int    `json:"col"`
	Value      string `json:"value"`
	Label      string `json:"label"`
}

// Search finds cells whose whole text equals query, ignoring case. current
// selects the sheet for ScopeCurrentSheet and defaults to 0 when nil.
//
// Results come from the sheets' indexes. Each hit is checked against the live
// cell, so a stale index can miss cells moved by a recent structural edit but
// never reports a cell that does not match.
func (w *Workbook) Search(ctx context.Context, query string, scope SearchScope, current *int) (results []SearchResult, err error) {
	ctx, span := startSpan(ctx, "Workbook.Search")
	defer func() { endSpan(span, err) }()

	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.engine == nil {
		return nil, ErrNoDocument
	}

	sheet := 0
	if current != nil {
		sheet = *current
	}
	results = SearchDocument(w.engine.Document(), query, scope, sheet)

	span.SetAttributes(
		attribute.String("scope", string(scope)),
		attribute.Int("results", len(results)),
	)
	searchResults.Observe(float64(len(results)))
	return results, nil
}

// SearchDocument runs a search over doc's indexes without locking.
func SearchDocument(doc *Document, query string, scope SearchScope, current int) []SearchResult {
	token := strings.ToLower(query)
	if token == "" {
		return []SearchResult{}
	}

	results := []SearchResult{}
	if scope == ScopeAllSheets {
		for i, s := range doc.Sheets {
			results = appendMatches(results, i, s, token)
		}
		return results
	}

	if s, ok := doc.Sheet(current); ok {
		results = appendMatches(results, current, s, token)
	}
	return results
}

func appendMatches(results []SearchResult, idx int, s *Sheet, token string) []SearchResult {
	for _, pos := range s.Index().Lookup(token) {
		v, ok := s.Cell(pos.Row, pos.Col)
		if !ok || Normalize(v) != token {
			continue
		}
		results = append(results, SearchResult{
			SheetIndex: idx,
			SheetName:  s.Name,
			Row:        pos.Row,
			Col:        pos.Col,
			Value:      v.Text(),
			Label:      CellLabel(pos.Row, pos.Col),
		})
	}
	return results
}

// ColumnLabel converts a zero-based column to spreadsheet letters:
// 0 -> A, 25 -> Z, 26 -> AA, 701 -> ZZ, 702 -> AAA.
func ColumnLabel(col int) string {
	if col < 0 {
		return ""
	}
	var buf [16]byte
	i := len(buf)
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		i--
		buf[i] = byte('A' + (n-1)%26)
	}
	return string(buf[i:])
}

// CellLabel returns the A1-style label for a zero-based position.
func CellLabel(row, col int) string {
	return ColumnLabel(col) + strconv.Itoa(row+1)
}
