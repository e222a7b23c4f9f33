// Package sheet maps rows of a requisition spreadsheet to canonical fields
// and orders them by recency.
//
// Everything in this package is pure: no I/O, no shared state, and no
// error returns. Short rows, unknown headers and unparseable dates degrade
// to defaults rather than failing.
package sheet

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field is a canonical column name the rest of the application depends on,
// independent of the header text used by a given spreadsheet version.
type Field string

const (
	FieldTitle      Field = "Title"
	FieldLocation   Field = "Location"
	FieldSalary     Field = "Salary"
	FieldStartDate  Field = "Start Date"
	FieldContract   Field = "Contract"
	FieldClient     Field = "Client"
	FieldDepartment Field = "Department"
	FieldExperience Field = "Experience"
	FieldNotes      Field = "Notes"
)

// Header is the ordered header row of a sheet.
type Header []string

// Row is one data row. It may be shorter than the header.
type Row []string

// Alias lists the accepted header spellings for one field, in priority order.
type Alias struct {
	Field   Field
	Aliases []string
}

// AliasTable is the ordered set of fields to resolve.
type AliasTable []Alias

// IndexMap holds the resolved column position of each field.
// A field without a key was not found in the header.
type IndexMap map[Field]int

// DefaultAliases covers the French and English header variants seen in the
// requisition sheets.
var DefaultAliases = AliasTable{
	{Field: FieldTitle, Aliases: []string{"Titre du poste", "Intitulé du poste", "Titre", "Poste", "Job Title", "Title"}},
	{Field: FieldLocation, Aliases: []string{"Ville", "Localisation", "Lieu", "Lieu de travail", "Location", "City"}},
	{Field: FieldSalary, Aliases: []string{"Salaire", "Rémunération", "Package", "Salary", "Compensation"}},
	{Field: FieldStartDate, Aliases: []string{"Date de début", "Date de démarrage", "Démarrage", "Start Date"}},
	{Field: FieldContract, Aliases: []string{"Type de contrat", "Contrat", "Contract", "Contract Type"}},
	{Field: FieldClient, Aliases: []string{"Client", "Entreprise", "Société", "Company"}},
	{Field: FieldDepartment, Aliases: []string{"Service", "Département", "Department", "BU"}},
	{Field: FieldExperience, Aliases: []string{"Expérience", "Années d'expérience", "Séniorité", "Experience", "Seniority"}},
	{Field: FieldNotes, Aliases: []string{"Commentaires", "Remarques", "Description", "Notes", "Comments"}},
}

// ResolveColumns maps every field of table to a header position.
//
// For each field the aliases are tried in order and, for each alias, the
// header is scanned left to right; the first hit wins. Two fields may end up
// on the same column: no collision detection is performed.
func ResolveColumns(headers Header, table AliasTable) IndexMap {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = Normalize(h)
	}

	idx := make(IndexMap, len(table))
	for _, entry := range table {
		if pos, ok := findAlias(normalized, entry.Aliases); ok {
			idx[entry.Field] = pos
		}
	}
	return idx
}

func findAlias(normalized []string, aliases []string) (int, bool) {
	for _, alias := range aliases {
		want := Normalize(alias)
		if want == "" {
			continue
		}
		for i, h := range normalized {
			if h == want {
				return i, true
			}
		}
	}
	return 0, false
}

// GetField returns the trimmed cell for field, or def when the field is
// unresolved or the row is too short to contain it.
func GetField(row Row, idx IndexMap, field Field, def string) string {
	pos, ok := idx[field]
	if !ok || pos < 0 || pos >= len(row) {
		return def
	}
	return strings.TrimSpace(row[pos])
}

// Normalize folds s for header comparison: diacritics removed, lower-cased,
// inner whitespace collapsed to single spaces, outer whitespace trimmed.
func Normalize(s string) string {
	folded, _, err := transform.String(foldTransformer(), s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// foldTransformer decomposes, drops combining marks and recomposes.
// transform.Chain keeps state, so a fresh chain is built per call.
func foldTransformer() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
