package core

import (
	"time"

	"github.com/JonMunkholm/jobdesk/internal/store"
)

// FailedRow describes a requisition that could not be turned into a fiche.
type FailedRow struct {
	Line   int    `json:"line"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// GenerateResult is the outcome of one generation batch.
type GenerateResult struct {
	Source   string        `json:"source"`
	Rows     int           `json:"rows"`
	Fiches   []store.Fiche `json:"fiches"`
	Failed   []FailedRow   `json:"failed,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Candidate groups a fiche with everything derived from it, as shown on the
// "Trouver un candidat" tab.
type Candidate struct {
	Fiche         store.Fiche      `json:"fiche"`
	SourcingQuery string           `json:"sourcingQuery"`
	Outreach      *store.Artifact  `json:"outreach,omitempty"`
	Artifacts     []store.Artifact `json:"artifacts"`
}
