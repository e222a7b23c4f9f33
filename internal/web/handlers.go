package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/JonMunkholm/jobdesk/internal/core"
	"github.com/JonMunkholm/jobdesk/internal/logging"
	"github.com/go-chi/chi/v5"
)

// maxPromptSize bounds the generate request body.
const maxPromptSize = 64 << 10

// handleHealth reports liveness and running batches.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"activeBatches": s.service.ActiveBatches(),
	})
}

// handleIndex renders both tabs. ?tab=candidate&fiche=<id> selects a fiche.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := pageData{Tab: tabGenerator, Notice: generateNotice(q)}

	if q.Get("tab") == tabCandidate || q.Get("fiche") != "" {
		data.Tab = tabCandidate
		if id := q.Get("fiche"); id != "" {
			c, err := s.service.Candidate(r.Context(), id)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			data.Candidate = newCandidateView(c)
		}
	}

	s.renderPage(w, r, http.StatusOK, data)
}

// handleCandidate renders the candidate tab for one fiche.
func (s *Server) handleCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := s.service.Candidate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, pageData{Tab: tabCandidate, Candidate: newCandidateView(c)})
}

// handleGenerate runs a batch from the form prompt and redirects to the list.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPromptSize)
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}

	res, err := s.service.Generate(r.Context(), r.PostForm.Get("prompt"))
	if err != nil {
		msg := core.MapError(err)
		logging.FromContext(r.Context()).Error("generation failed", "error", err, "code", msg.Code)
		s.renderPage(w, r, statusFor(err, msg), pageData{Tab: tabGenerator, Error: &msg})
		return
	}

	v := url.Values{}
	v.Set("generated", strconv.Itoa(len(res.Fiches)))
	v.Set("failed", strconv.Itoa(len(res.Failed)))
	http.Redirect(w, r, "/?"+v.Encode(), http.StatusSeeOther)
}

// handleOutreach drafts an outreach email and returns to the candidate tab.
func (s *Server) handleOutreach(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.service.Outreach(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, "/candidate/"+url.PathEscape(id), http.StatusSeeOther)
}

// renderPage fills the fiche list and renders the index page.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	fiches, err := s.service.Fiches(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	data.Fiches = make([]ficheView, len(fiches))
	for i, f := range fiches {
		data.Fiches[i] = newFicheView(f)
	}
	data.ActiveBatches = s.service.ActiveBatches()
	s.render(w, status, "index.html", data)
}

func generateNotice(q url.Values) string {
	generated := q.Get("generated")
	if generated == "" {
		return ""
	}
	notice := generated + " fiche(s) générée(s)."
	if failed, _ := strconv.Atoi(q.Get("failed")); failed > 0 {
		notice += fmt.Sprintf(" %d ligne(s) en échec, voir les journaux.", failed)
	}
	return notice
}

// handleListFiches returns every fiche, newest first.
func (s *Server) handleListFiches(w http.ResponseWriter, r *http.Request) {
	fiches, err := s.service.Fiches(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fiches)
}

// handleGetFiche returns a fiche with its sourcing query and artifacts.
func (s *Server) handleGetFiche(w http.ResponseWriter, r *http.Request) {
	c, err := s.service.Candidate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleExportFiches streams all fiches as a CSV download.
func (s *Server) handleExportFiches(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("fiches_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := s.service.ExportCSV(r.Context(), w); err != nil {
		// Headers may already be sent; log only
		logging.FromContext(r.Context()).Error("export fiches", "error", err)
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

// handleAPIGenerate runs a batch and returns the full result, failures included.
func (s *Server) handleAPIGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPromptSize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid JSON body",
			Message: "Corps de requête invalide",
			Action:  `Envoyez {"prompt": "..."}`,
			Code:    "REQ000",
		})
		return
	}

	res, err := s.service.Generate(r.Context(), req.Prompt)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleAPISourcingQuery computes and records the fiche's sourcing query.
func (s *Server) handleAPISourcingQuery(w http.ResponseWriter, r *http.Request) {
	a, err := s.service.SourcingQuery(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// handleAPIOutreach drafts and records an outreach email.
func (s *Server) handleAPIOutreach(w http.ResponseWriter, r *http.Request) {
	a, err := s.service.Outreach(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}
