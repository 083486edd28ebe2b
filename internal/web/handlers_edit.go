package web

import (
	"net/http"

	"github.com/JonMunkholm/gridedit/internal/core"
)

type setCellRequest struct {
	Value core.CellValue  `json:"value"`
	Old   *core.CellValue `json:"old,omitempty"`
}

type addRowRequest struct {
	// Index defaults to the end of the sheet.
	Index *int `json:"index"`
}

type addSheetRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleSetCell(w http.ResponseWriter, r *http.Request) {
	sheet, row, col, ok := cellParams(w, r)
	if !ok {
		return
	}
	var req setCellRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	change, err := s.workbook.SetCell(r.Context(), sheet, row, col, req.Value, req.Old)
	s.respondChange(w, r, change, err)
}

func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	sheet, err := intParam(r, "sheet")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	var req addRowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	index := core.AppendRow
	if req.Index != nil {
		index = *req.Index
	}

	change, err := s.workbook.AddRow(r.Context(), sheet, index)
	s.respondChange(w, r, change, err)
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	sheet, err := intParam(r, "sheet")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	row, err := intParam(r, "row")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	change, err := s.workbook.DeleteRow(r.Context(), sheet, row)
	s.respondChange(w, r, change, err)
}

func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	sheet, err := intParam(r, "sheet")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	change, err := s.workbook.AddColumn(r.Context(), sheet)
	s.respondChange(w, r, change, err)
}

func (s *Server) handleDeleteColumn(w http.ResponseWriter, r *http.Request) {
	sheet, err := intParam(r, "sheet")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	col, err := intParam(r, "col")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	change, err := s.workbook.DeleteColumn(r.Context(), sheet, col)
	s.respondChange(w, r, change, err)
}

func (s *Server) handleAddSheet(w http.ResponseWriter, r *http.Request) {
	var req addSheetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	change, err := s.workbook.AddSheet(r.Context(), req.Name)
	s.respondChange(w, r, change, err)
}

func (s *Server) handleDeleteSheet(w http.ResponseWriter, r *http.Request) {
	sheet, err := intParam(r, "sheet")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	change, err := s.workbook.DeleteSheet(r.Context(), sheet)
	s.respondChange(w, r, change, err)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	change, err := s.workbook.Undo(r.Context())
	s.respondChange(w, r, change, err)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	change, err := s.workbook.Redo(r.Context())
	s.respondChange(w, r, change, err)
}

func cellParams(w http.ResponseWriter, r *http.Request) (sheet, row, col int, ok bool) {
	var err error
	if sheet, err = intParam(r, "sheet"); err != nil {
		badRequest(w, r, err.Error())
		return 0, 0, 0, false
	}
	if row, err = intParam(r, "row"); err != nil {
		badRequest(w, r, err.Error())
		return 0, 0, 0, false
	}
	if col, err = intParam(r, "col"); err != nil {
		badRequest(w, r, err.Error())
		return 0, 0, 0, false
	}
	return sheet, row, col, true
}
