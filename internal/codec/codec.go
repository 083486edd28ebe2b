// Package codec reads and writes whole documents as files.
//
// The format is chosen by file extension: .csv, .json, .yaml and .yml. Files
// implements core.Store so the workbook can open and save through it.
package codec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/gridedit/internal/core"
)

// ErrUnsupportedFormat is returned for paths whose extension has no format.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrFileTooLarge is returned when a file exceeds the configured limit.
var ErrFileTooLarge = errors.New("file too large")

// Format converts between a byte stream and a document.
type Format interface {
	Decode(r io.Reader) (*core.Document, error)
	Encode(w io.Writer, doc *core.Document) error
}

// Files loads and stores documents on the local filesystem.
type Files struct {
	formats  map[string]Format
	maxBytes int64
}

// FilesOption configures Files.
type FilesOption func(*Files)

// WithMaxBytes rejects files larger than n bytes on load. Zero means no limit.
func WithMaxBytes(n int64) FilesOption {
	return func(f *Files) { f.maxBytes = n }
}

// WithFormat registers (or replaces) the format for ext, e.g. ".tsv".
func WithFormat(ext string, format Format) FilesOption {
	return func(f *Files) { f.formats[strings.ToLower(ext)] = format }
}

// NewFiles returns a store with the built-in formats registered.
func NewFiles(opts ...FilesOption) *Files {
	yml := YAML{}
	f := &Files{formats: map[string]Format{
		".csv":  CSV{Comma: ','},
		".json": JSON{Indent: "  "},
		".yaml": yml,
		".yml":  yml,
	}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FormatFor returns the format registered for path's extension.
func (f *Files) FormatFor(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := f.formats[ext]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, ext)
	}
	return format, nil
}

// Load reads the document at path. Its FileName is set to path.
func (f *Files) Load(ctx context.Context, path string) (*core.Document, error) {
	format, err := f.FormatFor(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var r io.Reader = file
	if f.maxBytes > 0 {
		info, err := file.Stat()
		if err != nil {
			return nil, err
		}
		if info.Size() > f.maxBytes {
			return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, info.Size(), f.maxBytes)
		}
		r = io.LimitReader(file, f.maxBytes)
	}

	doc, err := format.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	doc.FileName = path
	return doc, nil
}

// Store writes doc to path through a temporary file in the same directory,
// so a failed write never leaves a truncated file behind.
func (f *Files) Store(ctx context.Context, path string, doc *core.Document) error {
	format, err := f.FormatFor(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := format.Encode(tmp, doc); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// DefaultSavePath derives the path offered when saving a document that has
// not been saved under a new name: "dir/name.ext" becomes
// "dir/name_edited.ext". Names without an extension get ".json".
func DefaultSavePath(fileName string) string {
	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	if ext == "" {
		ext = ".json"
	}
	if base == "" {
		base = "untitled"
	}
	return base + "_edited" + ext
}
