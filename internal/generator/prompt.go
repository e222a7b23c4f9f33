// Package generator builds prompts from requisitions, calls the completion
// API and tidies the returned text.
package generator

import (
	"regexp"
	"strings"

	"github.com/JonMunkholm/jobdesk/internal/sheet"
)

// SystemPersona is sent as the system message for every completion.
const SystemPersona = "Tu es un assistant RH qui suit les instructions utilisateur à la lettre."

// DefaultTitle stands in for a requisition without a title.
const DefaultTitle = "Titre non spécifié"

// promptLines are the optional fields appended after the title, in order.
var promptLines = []struct {
	label string
	field sheet.Field
}{
	{"Lieu", sheet.FieldLocation},
	{"Salaire", sheet.FieldSalary},
	{"Date de début", sheet.FieldStartDate},
	{"Contrat", sheet.FieldContract},
	{"Client", sheet.FieldClient},
	{"Expérience", sheet.FieldExperience},
}

// BuildPrompt assembles the user message for one requisition: the user's
// instructions, a blank line, the title, then each non-empty field.
func BuildPrompt(userPrompt string, req sheet.Requisition) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(userPrompt))
	b.WriteString("\n\n")
	b.WriteString("Titre : " + req.Get(sheet.FieldTitle, DefaultTitle) + "\n")

	for _, pl := range promptLines {
		v := req.Get(pl.field, "")
		if v == "" {
			continue
		}
		if pl.field == sheet.FieldSalary {
			v = FormatSalary(v)
		}
		b.WriteString(pl.label + " : " + v + "\n")
	}
	return strings.TrimSpace(b.String())
}

var bareAmount = regexp.MustCompile(`^[0-9][0-9\s.,/kK–-]*$`)

// FormatSalary appends a euro sign to bare amounts such as "45000" or
// "45-50k". Anything else, including values already carrying a currency, is
// returned trimmed but otherwise untouched.
func FormatSalary(s string) string {
	s = strings.TrimSpace(s)
	if !bareAmount.MatchString(s) {
		return s
	}
	return s + " €"
}

// SourcingQuery builds a boolean search string for candidate sourcing.
// The location clause is dropped when location is empty.
func SourcingQuery(title, location string) string {
	title = stripQuotes(title)
	if title == "" {
		return ""
	}
	q := `"` + title + `"`
	if loc := stripQuotes(location); loc != "" {
		q += ` AND ("` + loc + `")`
	}
	return q
}

func stripQuotes(s string) string {
	return strings.TrimSpace(strings.NewReplacer(`"`, "", "“", "", "”", "").Replace(s))
}

// outreachPrompt is the user message for an outreach email.
func outreachPrompt(title, fiche string) string {
	var b strings.Builder
	b.WriteString("Rédige un court email d'approche (150 mots maximum) destiné à un candidat ")
	b.WriteString("potentiel pour le poste ci-dessous. Ton professionnel et chaleureux, vouvoiement, ")
	b.WriteString("conclus en proposant un échange téléphonique. Réponds uniquement avec l'objet et le corps de l'email.\n\n")
	b.WriteString("Poste : " + strings.TrimSpace(title) + "\n\n")
	b.WriteString("Fiche de poste :\n")
	b.WriteString(strings.TrimSpace(fiche))
	return b.String()
}
