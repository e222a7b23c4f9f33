package sheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDateColumn(t *testing.T) {
	tests := []struct {
		name    string
		headers Header
		want    int
		ok      bool
	}{
		{"plain date", Header{"Titre", "Date"}, 1, true},
		{"google forms timestamp", Header{"Horodateur", "Titre"}, 0, true},
		{"accented debut", Header{"Titre", "Début mission"}, 1, true},
		{"english created", Header{"Title", "Created At"}, 1, true},
		{"first match wins", Header{"Updated", "Start Date"}, 0, true},
		{"none", Header{"Titre", "Ville", "Salaire"}, -1, false},
		{"empty", Header{}, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectDateColumn(tt.headers)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{" 2024-01-01 ", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-05 14:30:00", time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), true},
		{"2024-03-05T14:30:00", time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), true},
		{"05/03/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"5/3/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"17/10/2026 09:15:00", time.Date(2026, 10, 17, 9, 15, 0, 0, time.UTC), true},
		{"05-03-2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"2024/03/05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"ASAP", time.Time{}, false},
		{"31/02/2024", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestSortByRecency_DateColumn(t *testing.T) {
	headers := Header{"Date"}
	rows := []Row{{"2024-01-01"}, {"2023-06-15"}, {"2025-03-01"}}

	got := SortByRecency(headers, rows)

	assert.Equal(t, []Row{{"2025-03-01"}, {"2024-01-01"}, {"2023-06-15"}}, got)
}

func TestSortByRecency_NoDateColumnReverses(t *testing.T) {
	headers := Header{"Titre", "Ville"}
	rows := []Row{{"A"}, {"B"}, {"C"}}

	got := SortByRecency(headers, rows)

	assert.Equal(t, []Row{{"C"}, {"B"}, {"A"}}, got)
}

func TestSortByRecency_UnparseableLastAndStable(t *testing.T) {
	headers := Header{"Titre", "Date de début"}
	rows := []Row{
		{"x1", "bientôt"},
		{"a", "01/02/2024"},
		{"x2"},
		{"b", "2024-06-01"},
		{"x3", ""},
		{"c", "01/02/2024"},
	}

	got := SortByRecency(headers, rows)

	want := []Row{
		{"b", "2024-06-01"},
		{"a", "01/02/2024"},
		{"c", "01/02/2024"},
		{"x1", "bientôt"},
		{"x2"},
		{"x3", ""},
	}
	assert.Equal(t, want, got)
}

func TestSortByRecency_DoesNotMutateInput(t *testing.T) {
	rows := []Row{{"A"}, {"B"}, {"C"}}
	_ = SortByRecency(Header{"Titre"}, rows)
	assert.Equal(t, []Row{{"A"}, {"B"}, {"C"}}, rows)

	dated := []Row{{"2020-01-01"}, {"2021-01-01"}}
	_ = SortByRecency(Header{"Date"}, dated)
	assert.Equal(t, []Row{{"2020-01-01"}, {"2021-01-01"}}, dated)
}

func TestSortByRecency_Empty(t *testing.T) {
	assert.Empty(t, SortByRecency(Header{"Date"}, nil))
	assert.Empty(t, SortByRecency(nil, []Row{}))
}

func TestRecencyOrder(t *testing.T) {
	headers := Header{"Date"}
	rows := []Row{{"2024-01-01"}, {"2023-06-15"}, {"2025-03-01"}}

	require.Equal(t, []int{2, 0, 1}, RecencyOrder(headers, rows))
	require.Equal(t, []int{2, 1, 0}, RecencyOrder(Header{"Titre"}, rows))
}
