package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/gridedit/internal/core"
)

type searchResponse struct {
	Query   string              `json:"query"`
	Scope   core.SearchScope    `json:"scope"`
	Results []core.SearchResult `json:"results"`
}

// handleSearch serves GET /api/search?q=&scope=current|all&sheet=N.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	scope, err := core.ParseScope(q.Get("scope"))
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	var current *int
	if raw := q.Get("sheet"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(w, r, "sheet must be an integer")
			return
		}
		current = &n
	}

	results, err := s.workbook.Search(r.Context(), q.Get("q"), scope, current)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: q.Get("q"), Scope: scope, Results: results})
}
