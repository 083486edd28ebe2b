package web

// Shared request parsing and response helpers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gridedit/internal/core"
)

// maxBodyBytes caps JSON bodies. Init carries a whole document, so this is
// generous.
const maxBodyBytes = 32 << 20

// decodeJSON reads an optional JSON body into v. An empty body leaves v
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// intParam parses a chi URL parameter as an int. Negative values pass; the
// core treats them as out of range.
func intParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

// mutationResponse is a Change plus the history flags the toolbar needs.
type mutationResponse struct {
	core.Change
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
}

// respondChange writes the result of a mutation. An out-of-range edit is not
// an error: it comes back as kind "none" with status 200.
func (s *Server) respondChange(w http.ResponseWriter, r *http.Request, change core.Change, err error) {
	if err != nil {
		respondError(w, r, err)
		return
	}
	resp := mutationResponse{Change: change}
	if st, err := s.workbook.Status(r.Context()); err == nil {
		resp.CanUndo, resp.CanRedo = st.CanUndo, st.CanRedo
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolvePath confines a client-supplied path to the configured file root.
// With no root, paths are used as given.
func (s *Server) resolvePath(p string) (string, error) {
	root := s.cfg.Server.Root
	if root == "" {
		return p, nil
	}
	if !filepath.IsLocal(p) {
		return "", fmt.Errorf("path %q must be relative to the file root", p)
	}
	return filepath.Join(root, p), nil
}
