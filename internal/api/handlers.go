package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/circulo/circulo/internal/domain"
)

// decode reads a JSON request body into v.
func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// ─── Catalog Handlers ───────────────────────────────────────────────────────

func (s *Server) handleCreateAuthor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Surname string `json:"surname"`
		Bio     string `json:"bio"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	a, err := s.svc.AddAuthor(r.Context(), req.Name, req.Surname, req.Bio)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleCreateTitle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string  `json:"name"`
		AuthorID        int64   `json:"author_id"`
		TotalCopies     int     `json:"total_copies"`
		ReplacementCost float64 `json:"replacement_cost"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	t, err := s.svc.AddTitle(r.Context(), req.Name, req.AuthorID, req.TotalCopies, req.ReplacementCost)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := s.svc.Titles(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if titles == nil {
		titles = []domain.Title{}
	}
	writeJSON(w, http.StatusOK, titles)
}

func (s *Server) handleTitleAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid title id")
		return
	}
	free, err := s.svc.AvailableCopies(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title_id":         id,
		"available_copies": free,
	})
}

// ─── Patron Handlers ────────────────────────────────────────────────────────

func (s *Server) handleCreatePatron(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Identity string `json:"identity"`
		Email    string `json:"email"`
		Category string `json:"category"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := s.svc.RegisterPatron(r.Context(), req.Name, req.Identity, req.Email,
		domain.PatronCategory(req.Category))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListPatrons(w http.ResponseWriter, r *http.Request) {
	patrons, err := s.svc.Patrons(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if patrons == nil {
		patrons = []domain.Patron{}
	}
	writeJSON(w, http.StatusOK, patrons)
}

func (s *Server) handleDeactivatePatron(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid patron id")
		return
	}
	if err := s.svc.DeactivatePatron(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// ─── Loan Handlers ──────────────────────────────────────────────────────────

func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TitleID  int64  `json:"title_id"`
		PatronID *int64 `json:"patron_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	l, err := s.svc.CreateDraft(r.Context(), req.TitleID, req.PatronID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	l, err := s.svc.Loan(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleAssignPatron(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PatronID int64 `json:"patron_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	l, err := s.svc.AssignPatron(r.Context(), chi.URLParam(r, "code"), req.PatronID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	l, err := s.svc.Activate(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Condition string `json:"condition"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	condition := domain.ReturnCondition(req.Condition)
	switch condition {
	case domain.ConditionGood, domain.ConditionDamaged, domain.ConditionLost:
	case "":
		condition = domain.ConditionGood
	default:
		writeError(w, http.StatusBadRequest, "condition must be GOOD, DAMAGED or LOST")
		return
	}

	summary, err := s.svc.Return(r.Context(), chi.URLParam(r, "code"), condition)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) handleLoanFines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l, err := s.svc.Loan(ctx, chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	fines, err := s.svc.Ledger().ListByLoan(ctx, l.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if fines == nil {
		fines = []domain.Fine{}
	}
	total, err := s.svc.Ledger().Total(ctx, l.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	outstanding, err := s.svc.Ledger().Outstanding(ctx, l.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loan":        l.Code,
		"fines":       fines,
		"total":       total,
		"outstanding": outstanding,
	})
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.NotifyOutstanding(r.Context(), chi.URLParam(r, "code")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// ─── Fine and Sweep Handlers ────────────────────────────────────────────────

func (s *Server) handlePayFine(w http.ResponseWriter, r *http.Request) {
	f, err := s.svc.Ledger().MarkPaid(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.SweepOverdue(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
