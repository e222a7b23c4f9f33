package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	userPrompt := "Rédige une fiche de poste attractive en français.\nMissions"

	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "plain text trimmed",
			output: "\n  Fiche : Comptable\n\n",
			want:   "Fiche : Comptable",
		},
		{
			name:   "echoed user prompt removed",
			output: "Rédige une fiche de poste attractive en français.\nFiche : Comptable",
			want:   "Fiche : Comptable",
		},
		{
			name:   "short prompt lines kept",
			output: "Missions\n- Tenue des comptes",
			want:   "Missions\n- Tenue des comptes",
		},
		{
			name:   "instruction headers removed",
			output: "Instructions : rédiger\nConsignes suivies.\nPrompt: x\nFiche",
			want:   "Fiche",
		},
		{
			name:   "persona removed",
			output: SystemPersona + "\nFiche",
			want:   "Fiche",
		},
		{
			name:   "blank runs collapsed",
			output: "A\n\n\n\nB\r\n\r\nC",
			want:   "A\n\nB\n\nC",
		},
		{
			name:   "blank around dropped line collapsed",
			output: "A\n\nConsignes\n\nB",
			want:   "A\n\nB",
		},
		{
			name:   "everything leaked",
			output: "Instructions\n\n",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.output, userPrompt))
		})
	}
}
