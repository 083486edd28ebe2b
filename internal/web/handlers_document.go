package web

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/gridedit/internal/codec"
	"github.com/JonMunkholm/gridedit/internal/core"
)

type openRequest struct {
	Path string `json:"path"`
}

type saveRequest struct {
	Path string `json:"path"`
}

type saveResponse struct {
	Path string `json:"path"`
}

type recoverRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleOpenDocument(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		badRequest(w, r, "path is required")
		return
	}
	path, err := s.resolvePath(req.Path)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	info, err := s.workbook.Open(r.Context(), path)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleInitDocument installs a document parsed by the client.
func (s *Server) handleInitDocument(w http.ResponseWriter, r *http.Request) {
	var doc core.Document
	if err := decodeJSON(w, r, &doc); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.workbook.Init(r.Context(), &doc))
}

// handleSaveDocument saves to the given path, or to "<name>_edited.<ext>"
// next to the current file when no path is given.
func (s *Server) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	path := req.Path
	if path == "" {
		st, err := s.workbook.Status(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		path = codec.DefaultSavePath(st.FileName)
		if root := s.cfg.Server.Root; root != "" {
			if rel, err := filepath.Rel(root, path); err == nil {
				path = rel
			}
		}
	}
	path, err := s.resolvePath(path)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	saved, err := s.workbook.Save(r.Context(), path)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Path: saved})
}

func (s *Server) handleRecoverDocument(w http.ResponseWriter, r *http.Request) {
	var req recoverRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if req.Key == "" {
		badRequest(w, r, "key is required")
		return
	}

	info, err := s.workbook.Recover(r.Context(), req.Key)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		respondError(w, r, core.ErrNoSnapshotStore)
		return
	}
	keys, err := s.snapshots.Keys(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"keys": keys})
}

func (s *Server) handleCloseDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.workbook.Close(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.workbook.Snapshot(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.workbook.Status(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
