package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/gridedit/internal/logging"
)

// ErrNoSnapshotStore is returned by Recover and autosave when the workbook
// was built without a snapshot store.
var ErrNoSnapshotStore = errors.New("snapshot store not configured")

// Store loads and stores whole documents by name: a file path for codecs, a
// key for snapshot stores. Failures are opaque to the workbook.
type Store interface {
	Load(ctx context.Context, name string) (*Document, error)
	Store(ctx context.Context, name string, doc *Document) error
}

// Workbook is the single shared handle to the live document. Mutations take
// the lock exclusively; status, snapshot and search share it. Structural
// edits hand their sheet to the reindexer after the lock is released.
//
// A Workbook starts with no document. Open, Init and Recover install one,
// replacing any previous document and its history; Close drops it.
type Workbook struct {
	mu      sync.RWMutex
	engine  *Engine
	session string
	// savedVersion is the engine version last written by Save or autosave.
	savedVersion uint64

	files     Store
	snapshots Store
	reindexer *Reindexer
	limiter   *IOLimiter

	reindexWorkers int
	pollInterval   time.Duration
}

// Option configures a Workbook.
type Option func(*Workbook)

// WithFiles sets the store used by Open and Save.
func WithFiles(s Store) Option { return func(w *Workbook) { w.files = s } }

// WithSnapshots sets the store used by autosave and Recover.
func WithSnapshots(s Store) Option { return func(w *Workbook) { w.snapshots = s } }

// WithReindexer sizes the rebuild worker pool.
func WithReindexer(workers int, pollInterval time.Duration) Option {
	return func(w *Workbook) {
		w.reindexWorkers = workers
		w.pollInterval = pollInterval
	}
}

// WithIOLimiter bounds concurrent Open/Save/Recover calls.
func WithIOLimiter(l *IOLimiter) Option { return func(w *Workbook) { w.limiter = l } }

// NewWorkbook returns an empty workbook. Run must be started for structural
// edits to be reindexed.
func NewWorkbook(opts ...Option) *Workbook {
	w := &Workbook{}
	for _, opt := range opts {
		opt(w)
	}
	if w.limiter == nil {
		w.limiter = NewIOLimiter(DefaultMaxConcurrentIO, DefaultIOMaxWait)
	}
	w.reindexer = NewReindexer(w.reindexWorkers, w.pollInterval, w.rebuild)
	return w
}

// Run drives background reindexing until ctx is cancelled.
func (w *Workbook) Run(ctx context.Context) error {
	return w.reindexer.Run(ctx)
}

// Limiter exposes the I/O limiter for shutdown and monitoring.
func (w *Workbook) Limiter() *IOLimiter { return w.limiter }

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// DocumentInfo describes the installed document.
type DocumentInfo struct {
	Session  string         `json:"session"`
	FileName string         `json:"file_name"`
	Sheets   []SheetSummary `json:"sheets"`
}

// SheetSummary is a sheet's shape without its content.
type SheetSummary struct {
	Index      int    `json:"index"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Rows       int    `json:"rows"`
	Columns    int    `json:"columns"`
	IndexStale bool   `json:"index_stale"`
}

// Open loads path through the file store and installs it.
func (w *Workbook) Open(ctx context.Context, path string) (info DocumentInfo, err error) {
	ctx, span := startSpan(ctx, "Workbook.Open", trace.WithAttributes(attribute.String("path", path)))
	defer func() { endSpan(span, err) }()

	doc, err := w.load(ctx, w.files, path)
	if err != nil {
		return DocumentInfo{}, err
	}
	return w.install(ctx, doc), nil
}

// Recover installs the snapshot stored under key.
func (w *Workbook) Recover(ctx context.Context, key string) (info DocumentInfo, err error) {
	ctx, span := startSpan(ctx, "Workbook.Recover", trace.WithAttributes(attribute.String("key", key)))
	defer func() { endSpan(span, err) }()

	if w.snapshots == nil {
		return DocumentInfo{}, ErrNoSnapshotStore
	}
	doc, err := w.load(ctx, w.snapshots, key)
	if err != nil {
		return DocumentInfo{}, err
	}
	return w.install(ctx, doc), nil
}

// Init installs an already-parsed document.
func (w *Workbook) Init(ctx context.Context, doc *Document) DocumentInfo {
	if doc == nil {
		doc = NewDocument("")
	}
	return w.install(ctx, doc)
}

func (w *Workbook) load(ctx context.Context, from Store, name string) (*Document, error) {
	if from == nil {
		return nil, loadError(name, errors.New("no store configured"))
	}
	if err := w.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer w.limiter.Release()

	start := time.Now()
	doc, err := from.Load(ctx, name)
	ioTotal.WithLabelValues("load", outcome(err)).Inc()
	if err != nil {
		return nil, loadError(name, err)
	}
	logging.FromContext(ctx).Info("document loaded",
		"path", name,
		"sheets", len(doc.Sheets),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

// install replaces the live document, clears history and queues a rebuild
// of every sheet. Documents built outside NewDocument are normalized first.
func (w *Workbook) install(ctx context.Context, doc *Document) DocumentInfo {
	doc = NewDocument(doc.FileName, doc.Sheets...)
	session := uuid.New().String()

	info := func() DocumentInfo {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.engine = NewEngine(doc)
		w.session = session
		w.savedVersion = 0
		return w.infoLocked()
	}()

	jobs := make([]ReindexJob, len(info.Sheets))
	for i, s := range info.Sheets {
		jobs[i] = ReindexJob{Session: session, SheetID: s.ID}
	}
	w.reindexer.Submit(jobs...)

	logging.FromContext(ctx).Info("document installed",
		"session", session,
		"file_name", doc.FileName,
		"sheets", len(doc.Sheets),
	)
	return info
}

// Close drops the live document and its history. Queued rebuilds for it are
// abandoned when they run.
func (w *Workbook) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.engine == nil {
		w.mu.Unlock()
		return ErrNoDocument
	}
	session := w.session
	w.engine = nil
	w.session = ""
	w.mu.Unlock()

	logging.FromContext(ctx).Info("document closed", "session", session)
	return nil
}

// Save writes the live document to path, or to its current file name when
// path is empty. On success the document takes the new name.
func (w *Workbook) Save(ctx context.Context, path string) (saved string, err error) {
	ctx, span := startSpan(ctx, "Workbook.Save")
	defer func() { endSpan(span, err) }()

	if w.files == nil {
		return "", storeError(path, errors.New("no store configured"))
	}

	w.mu.RLock()
	if w.engine == nil {
		w.mu.RUnlock()
		return "", ErrNoDocument
	}
	doc := w.engine.Document().Clone()
	session, version := w.session, w.engine.Version()
	w.mu.RUnlock()

	if path == "" {
		path = doc.FileName
	}
	span.SetAttributes(attribute.String("path", path))

	if err := w.store(ctx, w.files, path, doc); err != nil {
		return "", err
	}

	w.mu.Lock()
	if w.engine != nil && w.session == session {
		w.engine.Document().FileName = path
		if version > w.savedVersion {
			w.savedVersion = version
		}
	}
	w.mu.Unlock()

	return path, nil
}

func (w *Workbook) store(ctx context.Context, to Store, name string, doc *Document) error {
	if err := w.limiter.Acquire(ctx); err != nil {
		return err
	}
	defer w.limiter.Release()

	start := time.Now()
	err := to.Store(ctx, name, doc)
	ioTotal.WithLabelValues("store", outcome(err)).Inc()
	if err != nil {
		return storeError(name, err)
	}
	logging.FromContext(ctx).Info("document stored",
		"path", name,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// Status reports undo/redo availability and the document's shape.
type Status struct {
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
	DocumentInfo
	// PendingReindex counts rebuild jobs queued or running.
	PendingReindex int `json:"pending_reindex"`
}

// Status returns the current editor status.
func (w *Workbook) Status(ctx context.Context) (Status, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.engine == nil {
		return Status{}, ErrNoDocument
	}
	return Status{
		CanUndo:        w.engine.CanUndo(),
		CanRedo:        w.engine.CanRedo(),
		DocumentInfo:   w.infoLocked(),
		PendingReindex: w.reindexer.Pending(),
	}, nil
}

func (w *Workbook) infoLocked() DocumentInfo {
	doc := w.engine.Document()
	sheets := make([]SheetSummary, len(doc.Sheets))
	for i, s := range doc.Sheets {
		sheets[i] = SheetSummary{
			Index:      i,
			ID:         s.ID,
			Name:       s.Name,
			Rows:       s.RowCount(),
			Columns:    s.ColumnCount(),
			IndexStale: s.IndexStale(),
		}
	}
	return DocumentInfo{Session: w.session, FileName: doc.FileName, Sheets: sheets}
}

// Snapshot returns a deep copy of the live document.
func (w *Workbook) Snapshot(ctx context.Context) (*Document, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.engine == nil {
		return nil, ErrNoDocument
	}
	return w.engine.Document().Clone(), nil
}

// WaitIndexed blocks until every scheduled rebuild has finished, closing the
// staleness window opened by earlier structural edits.
func (w *Workbook) WaitIndexed(ctx context.Context) error {
	return w.reindexer.WaitIdle(ctx)
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// Execute applies req to the live document and records it for undo.
func (w *Workbook) Execute(ctx context.Context, req Request) (Change, error) {
	return w.mutate(ctx, string(req.Kind()), func(e *Engine) (Change, error) {
		if a, ok := req.(advisoryRequest); ok && a.stale(e.Document()) {
			staleRequestsTotal.WithLabelValues(string(req.Kind())).Inc()
			logging.FromContext(ctx).Debug("request content is stale, using the live document",
				"kind", req.Kind(),
				"sheet", req.SheetIndex(),
			)
		}
		return e.Execute(req)
	})
}

// SetCell writes value at (sheet, row, col). old is advisory.
func (w *Workbook) SetCell(ctx context.Context, sheet, row, col int, value CellValue, old *CellValue) (Change, error) {
	return w.Execute(ctx, SetCellRequest{Sheet: sheet, Row: row, Col: col, Old: old, Value: value})
}

func (w *Workbook) AddRow(ctx context.Context, sheet, index int) (Change, error) {
	return w.Execute(ctx, AddRowRequest{Sheet: sheet, Index: index})
}

func (w *Workbook) DeleteRow(ctx context.Context, sheet, index int) (Change, error) {
	return w.Execute(ctx, DeleteRowRequest{Sheet: sheet, Index: index})
}

func (w *Workbook) AddColumn(ctx context.Context, sheet int) (Change, error) {
	return w.Execute(ctx, AddColumnRequest{Sheet: sheet})
}

func (w *Workbook) DeleteColumn(ctx context.Context, sheet, index int) (Change, error) {
	return w.Execute(ctx, DeleteColumnRequest{Sheet: sheet, Index: index})
}

// AddSheet appends a blank sheet; an empty name gets the default.
func (w *Workbook) AddSheet(ctx context.Context, name string) (Change, error) {
	return w.Execute(ctx, AddSheetRequest{Name: name})
}

func (w *Workbook) DeleteSheet(ctx context.Context, index int) (Change, error) {
	return w.Execute(ctx, DeleteSheetRequest{Index: index})
}

// Undo reverts the most recent operation. A structural inverse is reindexed
// in the background, a cell inverse inline.
func (w *Workbook) Undo(ctx context.Context) (Change, error) {
	return w.mutate(ctx, "undo", (*Engine).Undo)
}

// Redo re-applies the most recently undone operation.
func (w *Workbook) Redo(ctx context.Context) (Change, error) {
	return w.mutate(ctx, "redo", (*Engine).Redo)
}

// mutate runs fn under the write lock, then schedules any rebuild it asked
// for once the lock is released.
func (w *Workbook) mutate(ctx context.Context, kind string, fn func(*Engine) (Change, error)) (change Change, err error) {
	ctx, span := startSpan(ctx, "Workbook."+kind)
	defer func() { endSpan(span, err) }()

	start := time.Now()
	var session string
	change, err = func() (Change, error) {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.engine == nil {
			return noChange(0), ErrNoDocument
		}
		session = w.session
		return fn(w.engine)
	}()
	if errors.Is(err, ErrNoDocument) {
		operationsTotal.WithLabelValues(kind, "no_document").Inc()
		return change, err
	}
	operationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	result := "applied"
	switch {
	case err != nil:
		result = "error"
	case !change.Applied():
		result = "noop"
	}
	operationsTotal.WithLabelValues(kind, result).Inc()
	span.SetAttributes(
		attribute.String("change", string(change.Kind)),
		attribute.Int("sheet", change.Sheet),
	)

	if id := change.ReindexSheet(); id != "" {
		w.reindexer.Submit(ReindexJob{Session: session, SheetID: id})
	}

	if err == nil {
		logging.WithFields(ctx, clientFields(ctx)...).Debug("operation applied",
			"kind", kind,
			"change", change.Kind,
			"sheet", change.Sheet,
		)
	}
	return change, err
}

// rebuild is the reindexer's job handler. Jobs for a replaced document or a
// removed sheet find nothing to do.
func (w *Workbook) rebuild(ctx context.Context, job ReindexJob) {
	start := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.engine == nil || w.session != job.Session {
		reindexTotal.WithLabelValues("abandoned").Inc()
		return
	}
	_, s := w.engine.Document().SheetByID(job.SheetID)
	if s == nil {
		reindexTotal.WithLabelValues("abandoned").Inc()
		w.reindexer.logger.Debug("reindex abandoned", "sheet_id", job.SheetID)
		return
	}
	if !s.IndexStale() {
		reindexTotal.WithLabelValues("current").Inc()
		return
	}

	s.RebuildIndex()
	reindexTotal.WithLabelValues("rebuilt").Inc()
	reindexDuration.Observe(time.Since(start).Seconds())
	w.reindexer.logger.Debug("sheet reindexed",
		slog.String("sheet", s.Name),
		slog.Int("tokens", s.Index().Tokens()),
	)
}
