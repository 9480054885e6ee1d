package http

import (
	"net/http"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Not ready", applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleGetMonth(w http.ResponseWriter, r *http.Request) {
	ym, err := pathYearMonth(r)
	if err != nil {
		writeError(w, r, applog.OpSync, err)
		return
	}
	o, err := s.deps.Months.Month(r.Context(), ym)
	if err != nil {
		writeError(w, r, applog.OpSync, err)
		return
	}
	writeJSON(w, http.StatusOK, fromOverview(o))
}

func (s *Server) handleSyncMonth(w http.ResponseWriter, r *http.Request) {
	ym, err := pathYearMonth(r)
	if err != nil {
		writeError(w, r, applog.OpSync, err)
		return
	}
	res := s.deps.Months.Sync(r.Context(), ym)
	status := http.StatusOK
	if res.Err != nil {
		status = statusFor(res.Err)
	}
	writeJSON(w, status, fromSync(res))
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDeclaration(w, r)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	created, propagated, err := s.deps.Budgets.Create(r.Context(), d)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdDTO{Declaration: fromDeclaration(created), Propagated: propagated})
}

func (s *Server) handleEditBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	d, err := decodeDeclaration(w, r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	res, err := s.deps.Budgets.Edit(r.Context(), id, d)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, editedDTO{
		Declaration: fromDeclaration(res.Declaration),
		Split:       fromSplit(res.Split),
		Propagated:  res.Propagated,
	})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	res, err := s.deps.Budgets.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, fromSplit(res))
}

func (s *Server) handleTaxonomy(w http.ResponseWriter, r *http.Request) {
	sources, err := s.deps.Taxonomy.ListSources(r.Context())
	if err != nil {
		writeError(w, r, "taxonomy", err)
		return
	}
	groups, err := s.deps.Taxonomy.ListGroups(r.Context())
	if err != nil {
		writeError(w, r, "taxonomy", err)
		return
	}
	writeJSON(w, http.StatusOK, fromTaxonomy(sources, groups))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	decls, err := s.deps.Budgets.Export(r.Context())
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="budgets.json"`)
	writeJSON(w, http.StatusOK, fromDeclarations(decls))
}

// handleImport replaces every declaration with the posted array. One bad
// row rejects the whole import.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var rows []declarationDTO
	if err := decodeJSON(w, r, maxImportBytes, &rows); err != nil {
		writeError(w, r, applog.OpImport, err)
		return
	}
	decls := make([]core.Declaration, len(rows))
	for i, row := range rows {
		d, err := row.toDeclaration()
		if err != nil {
			writeError(w, r, applog.OpImport, rowError(i, err))
			return
		}
		decls[i] = d
	}
	if err := s.deps.Budgets.Import(r.Context(), decls); err != nil {
		writeError(w, r, applog.OpImport, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": len(decls)})
}
