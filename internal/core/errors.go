package core

// errors.go defines the editor's error taxonomy and its user-facing messages.
//
// Every error the core returns is recoverable. Callers distinguish kinds with
// errors.Is against the sentinels below; MapError turns any of them into a
// UserMessage carrying a stable code for support reference:
//
//	DOC001 - No document is open
//	HIS001 - Nothing to undo
//	HIS002 - Nothing to redo
//	STR001 - The last remaining sheet cannot be deleted
//	IO001  - The file could not be opened (cause preserved)
//	IO002  - The file could not be saved (cause preserved)
//	IO003  - Unsupported file format
//	IO004  - Too many open/save operations in progress
//	IO005  - File not found
//	IO006  - Permission denied
//	IO007  - No snapshot store is configured
//	GEN001 - Anything else

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

var (
	// ErrNoDocument is returned by every Workbook call made before a
	// document has been opened or initialised.
	ErrNoDocument = errors.New("no active document")

	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrLastSheet is the invalid structural target: a document always keeps
	// at least one sheet.
	ErrLastSheet = errors.New("cannot delete the last remaining sheet")

	ErrLoadFailed  = errors.New("load failed")
	ErrStoreFailed = errors.New("store failed")

	// ErrTooManyIO is returned when every I/O slot stays occupied for the
	// limiter's wait timeout. Clients should retry after a short delay.
	ErrTooManyIO = errors.New("too many concurrent open/save operations, please try again later")
)

// IOError wraps an opaque codec or store failure with the operation and path.
// errors.Is matches both the kind (ErrLoadFailed/ErrStoreFailed) and the cause.
type IOError struct {
	Op   string // "load" or "store"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error {
	kind := ErrLoadFailed
	if e.Op == "store" {
		kind = ErrStoreFailed
	}
	return []error{kind, e.Err}
}

func loadError(path string, err error) error {
	return &IOError{Op: "load", Path: path, Err: err}
}

func storeError(path string, err error) error {
	return &IOError{Op: "store", Path: path, Err: err}
}

// UserMessage is an error rendered for display.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

type errorKind struct {
	target error
	msg    UserMessage
}

// kinds is checked first, in order; more specific causes precede the generic
// load/store kinds so that an IOError reports its cause.
var kinds = []errorKind{
	{ErrNoDocument, UserMessage{Message: "No document is open", Action: "Open or create a document first", Code: "DOC001"}},
	{ErrNothingToUndo, UserMessage{Message: "Nothing to undo", Code: "HIS001"}},
	{ErrNothingToRedo, UserMessage{Message: "Nothing to redo", Code: "HIS002"}},
	{ErrLastSheet, UserMessage{Message: "The last remaining sheet cannot be deleted", Action: "Add another sheet first", Code: "STR001"}},
	{ErrTooManyIO, UserMessage{Message: "Too many open or save operations in progress", Action: "Please try again in a few moments", Code: "IO004"}},
	{ErrNoSnapshotStore, UserMessage{Message: "Snapshots are not enabled", Action: "Set SNAPSHOT_DRIVER to bolt or postgres", Code: "IO007"}},
	{fs.ErrNotExist, notFoundMessage},
	{fs.ErrPermission, permissionMessage},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// patterns match opaque causes from codecs and the filesystem.
var patterns = []errorPattern{
	{"unsupported format", UserMessage{Message: "Unsupported file format", Action: "Use a .csv, .json, .yaml or .yml file", Code: "IO003"}},
	{"no such file", notFoundMessage},
	{"not found", notFoundMessage},
	{"permission denied", permissionMessage},
}

var (
	notFoundMessage   = UserMessage{Message: "File not found", Action: "Check the path and try again", Code: "IO005"}
	permissionMessage = UserMessage{Message: "Permission denied", Action: "Check file permissions", Code: "IO006"}

	loadMessage    = UserMessage{Message: "The file could not be opened", Action: "Check the file and try again", Code: "IO001"}
	storeMessage   = UserMessage{Message: "The file could not be saved", Action: "Check the destination and try again", Code: "IO002"}
	defaultMessage = UserMessage{Message: "An unexpected error occurred", Action: "Please try again", Code: "GEN001"}
)

// MapError converts an error into a UserMessage. It returns the zero value
// for nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range kinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	lower := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(lower, p.pattern) {
			return p.msg
		}
	}

	switch {
	case errors.Is(err, ErrLoadFailed):
		return loadMessage
	case errors.Is(err, ErrStoreFailed):
		return storeMessage
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	if msg.Action == "" {
		return fmt.Sprintf("%s (Code: %s)", msg.Message, msg.Code)
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than the
// generic fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
