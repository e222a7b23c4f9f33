package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequisitions(t *testing.T) {
	grid := [][]string{
		{"Horodateur", "Titre du poste", "Ville", "Salaire"},
		{"01/09/2026 10:00:00", "Comptable", "Lyon", "38000"},
		{"", "", "", ""},
		{"15/09/2026 08:30:00", " Data Engineer ", "Paris"},
		{"n/a", "Stagiaire RH"},
	}

	reqs := Requisitions(grid, DefaultAliases)
	require.Len(t, reqs, 3)

	assert.Equal(t, 4, reqs[0].Line)
	assert.Equal(t, "Data Engineer", reqs[0].Fields[FieldTitle])
	assert.Equal(t, "Paris", reqs[0].Fields[FieldLocation])
	assert.Equal(t, "", reqs[0].Fields[FieldSalary])

	assert.Equal(t, 2, reqs[1].Line)
	assert.Equal(t, "38000", reqs[1].Fields[FieldSalary])

	assert.Equal(t, 5, reqs[2].Line)
	assert.Equal(t, "Stagiaire RH", reqs[2].Get(FieldTitle, "?"))
	assert.Equal(t, "?", reqs[2].Get(FieldLocation, "?"))
}

func TestRequisitions_Empty(t *testing.T) {
	assert.Nil(t, Requisitions(nil, DefaultAliases))
	assert.Empty(t, Requisitions([][]string{{"Titre"}}, DefaultAliases))
}
