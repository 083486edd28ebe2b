// Package core is the editing engine behind gridedit: an in-memory workbook
// of sheets with reversible edits and whole-cell token search.
//
// It has no knowledge of file formats or transports. Codecs and snapshot
// stores plug in through [Store]; the web and CLI layers call [Workbook].
//
// # Model
//
// A [Document] is a non-empty, ordered list of [Sheet] values. Each sheet is a
// rectangular grid of [CellValue] (Null, String, Number or Bool) plus a
// derived [InvertedIndex] from case-folded cell text to positions.
//
// # Edits
//
// Callers describe an edit as a [Request]. The [Engine] resolves it against
// the live document into an immutable [Operation], capturing whatever the
// inverse will need (the old value, the deleted row, the deleted sheet).
// Operations go on a linear history; undo moves them to a redo stack and a
// new edit clears it. Requests that target nothing in range are dropped and
// return a [Change] of kind [ChangeNone].
//
// # Concurrency
//
// [Workbook] is the one shared handle. Edits, undo and redo hold its lock
// exclusively; status, snapshots and search share it.
//
//   - Cell edits update the index inline. There is no staleness window.
//   - Row, column and sheet edits hand the sheet to the [Reindexer] after the
//     lock is released. Until its rebuild runs the sheet reports
//     [Sheet.IndexStale] and search may miss moved cells. It never returns a
//     cell that does not match. [Workbook.WaitIndexed] waits the window out.
//
// # Errors
//
// All failures are recoverable and distinguishable with errors.Is:
// [ErrNoDocument], [ErrNothingToUndo], [ErrNothingToRedo], [ErrLastSheet],
// [ErrLoadFailed] and [ErrStoreFailed]. [MapError] renders them for users.
package core
