package web

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/jobdesk/internal/core"
	"github.com/JonMunkholm/jobdesk/internal/sheet"
	"github.com/JonMunkholm/jobdesk/internal/store"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	tabGenerator = "generator"
	tabCandidate = "candidate"
)

// ficheView is a fiche prepared for display.
type ficheView struct {
	ID        string
	Title     string
	Location  string
	Salary    string
	Line      int
	CreatedAt time.Time
	Body      template.HTML
}

type candidateView struct {
	Fiche         ficheView
	SourcingQuery string
	Outreach      string
	OutreachAt    time.Time
}

type pageData struct {
	Tab           string
	Fiches        []ficheView
	Candidate     *candidateView
	Notice        string
	Error         *core.UserMessage
	ActiveBatches int
}

func parseTemplates() (*template.Template, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"datetime": func(t time.Time) string { return t.Local().Format("02/01/2006 15:04") },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// renderMarkdown converts completion output to HTML. Raw HTML in the input
// is dropped and only safe link schemes are kept.
func renderMarkdown(md string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.SkipHTML | mdhtml.Safelink | mdhtml.HrefTargetBlank,
	})
	return template.HTML(markdown.ToHTML([]byte(md), p, r))
}

func newFicheView(f store.Fiche) ficheView {
	return ficheView{
		ID:        f.ID.String(),
		Title:     f.Title,
		Location:  f.Location(),
		Salary:    f.Fields[string(sheet.FieldSalary)],
		Line:      f.Line,
		CreatedAt: f.CreatedAt,
		Body:      renderMarkdown(f.Content),
	}
}

func newCandidateView(c *core.Candidate) *candidateView {
	v := &candidateView{
		Fiche:         newFicheView(c.Fiche),
		SourcingQuery: c.SourcingQuery,
	}
	if c.Outreach != nil {
		v.Outreach = c.Outreach.Content
		v.OutreachAt = c.Outreach.CreatedAt
	}
	return v
}

// render executes a named template. Headers are already sent when it fails,
// so the error is only logged.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("render template", "template", name, "error", err)
	}
}

// renderError renders the error page.
func (s *Server) renderError(w http.ResponseWriter, msg core.UserMessage, status int) {
	s.render(w, status, "error.html", msg)
}
