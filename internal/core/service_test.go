package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JonMunkholm/jobdesk/internal/generator"
	"github.com/JonMunkholm/jobdesk/internal/sheet"
	"github.com/JonMunkholm/jobdesk/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	grid [][]string
	err  error
}

func (f *fakeSource) Fetch(ctx context.Context) ([][]string, error) { return f.grid, f.err }
func (f *fakeSource) Name() string                                  { return "fake" }

type fakeGen struct {
	mu       sync.Mutex
	prompts  []string
	fail     map[string]error
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	outreach func(title, fiche string) (string, error)
}

func (g *fakeGen) Fiche(ctx context.Context, userPrompt string, req sheet.Requisition) (string, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	title := req.Get(sheet.FieldTitle, "?")
	g.mu.Lock()
	g.prompts = append(g.prompts, userPrompt)
	g.mu.Unlock()

	if err := g.fail[title]; err != nil {
		return "", err
	}
	return "Fiche: " + title, nil
}

func (g *fakeGen) Outreach(ctx context.Context, title, fiche string) (string, error) {
	if g.outreach != nil {
		return g.outreach(title, fiche)
	}
	return "Bonjour, poste de " + title, nil
}

var testGrid = [][]string{
	{"Horodateur", "Titre du poste", "Ville", "Salaire"},
	{"01/09/2026", "Comptable", "Lyon", "38000"},
	{"15/09/2026", "Data Engineer", "Paris", "55k"},
	{"", "", "", ""},
	{"03/09/2026", "Juriste", "Nantes", ""},
}

// failingStore fails every SaveFiche after the first ok calls.
type failingStore struct {
	*store.Memory
	ok    int32
	calls atomic.Int32
}

func (f *failingStore) SaveFiche(ctx context.Context, fc *store.Fiche) error {
	if f.calls.Add(1) > f.ok {
		return errors.New("disk full")
	}
	return f.Memory.SaveFiche(ctx, fc)
}

func newTestService(t *testing.T, src *fakeSource, gen *fakeGen, opts Options) (*Service, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	return NewService(src, st, gen, opts), st
}

func TestService_Generate(t *testing.T) {
	gen := &fakeGen{}
	svc, _ := newTestService(t, &fakeSource{grid: testGrid}, gen, Options{})

	res, err := svc.Generate(context.Background(), "Rédige une fiche courte")
	require.NoError(t, err)

	assert.Equal(t, "fake", res.Source)
	assert.Equal(t, 3, res.Rows)
	assert.Empty(t, res.Failed)
	require.Len(t, res.Fiches, 3)

	assert.Equal(t, "Data Engineer", res.Fiches[0].Title)
	assert.Equal(t, 3, res.Fiches[0].Line)
	assert.Equal(t, "Fiche: Data Engineer", res.Fiches[0].Content)
	assert.Equal(t, "Paris", res.Fiches[0].Location())
	assert.Equal(t, "55k", res.Fiches[0].Fields["Salary"])
	assert.Equal(t, "Rédige une fiche courte", res.Fiches[0].Prompt)

	assert.Equal(t, "Juriste", res.Fiches[1].Title)
	assert.NotContains(t, res.Fiches[1].Fields, "Salary")
	assert.Equal(t, "Comptable", res.Fiches[2].Title)

	listed, err := svc.Fiches(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i := range listed {
		assert.Equal(t, res.Fiches[i].ID, listed[i].ID, "position %d", i)
	}

	assert.Len(t, gen.prompts, 3)
}

func TestService_Generate_ListsNewBatchFirst(t *testing.T) {
	gen := &fakeGen{}
	src := &fakeSource{grid: testGrid}
	svc, _ := newTestService(t, src, gen, Options{})

	_, err := svc.Generate(context.Background(), "a")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	src.grid = [][]string{{"Titre"}, {"Stagiaire"}}
	_, err = svc.Generate(context.Background(), "b")
	require.NoError(t, err)

	listed, err := svc.Fiches(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 4)
	assert.Equal(t, "Stagiaire", listed[0].Title)
	assert.Equal(t, "Data Engineer", listed[1].Title)
}

func TestService_Generate_RowFailureIsReported(t *testing.T) {
	gen := &fakeGen{fail: map[string]error{"Juriste": errors.New("chat completion (gpt): status code: 500")}}
	svc, _ := newTestService(t, &fakeSource{grid: testGrid}, gen, Options{})

	res, err := svc.Generate(context.Background(), "p")
	require.NoError(t, err)

	require.Len(t, res.Fiches, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, FailedRow{Line: 5, Title: "Juriste", Reason: "chat completion (gpt): status code: 500"}, res.Failed[0])
}

func TestService_Generate_DefaultTitle(t *testing.T) {
	grid := [][]string{{"Ville"}, {"Lille"}}
	svc, _ := newTestService(t, &fakeSource{grid: grid}, &fakeGen{}, Options{})

	res, err := svc.Generate(context.Background(), "p")
	require.NoError(t, err)
	require.Len(t, res.Fiches, 1)
	assert.Equal(t, "Titre non spécifié", res.Fiches[0].Title)
}

func TestService_Generate_FetchError(t *testing.T) {
	src := &fakeSource{err: errors.New("google sheets client: boom")}
	svc, st := newTestService(t, src, &fakeGen{}, Options{})

	_, err := svc.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch sheet")

	listed, _ := st.ListFiches(context.Background())
	assert.Empty(t, listed)
}

func TestService_Generate_EmptySheet(t *testing.T) {
	svc, _ := newTestService(t, &fakeSource{}, &fakeGen{}, Options{})

	res, err := svc.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Zero(t, res.Rows)
	assert.Empty(t, res.Fiches)
}

func TestService_Generate_RespectsConcurrency(t *testing.T) {
	grid := [][]string{{"Titre"}}
	for i := 0; i < 8; i++ {
		grid = append(grid, []string{"Poste " + strings.Repeat("x", i+1)})
	}
	gen := &fakeGen{delay: 10 * time.Millisecond}
	svc, _ := newTestService(t, &fakeSource{grid: grid}, gen, Options{Concurrency: 2})

	res, err := svc.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Len(t, res.Fiches, 8)
	assert.LessOrEqual(t, gen.peak.Load(), int32(2))
}

func TestService_Generate_BatchInProgress(t *testing.T) {
	limiter := NewBatchLimiter(1, 10*time.Millisecond)
	svc, _ := newTestService(t, &fakeSource{grid: testGrid}, &fakeGen{}, Options{Limiter: limiter})

	require.NoError(t, limiter.Acquire(context.Background()))
	defer limiter.Release()

	_, err := svc.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrBatchInProgress)
	assert.Equal(t, 1, svc.ActiveBatches())
}

func TestService_Generate_Cancelled(t *testing.T) {
	svc, st := newTestService(t, &fakeSource{grid: testGrid}, &fakeGen{}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Generate(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)

	listed, _ := st.ListFiches(context.Background())
	assert.Empty(t, listed)
}

func TestService_Generate_DeadlineKeepsFinishedRows(t *testing.T) {
	grid := [][]string{{"Titre"}}
	for i := 0; i < 12; i++ {
		grid = append(grid, []string{fmt.Sprintf("Poste %02d", i)})
	}
	gen := &fakeGen{delay: 40 * time.Millisecond}
	svc, st := newTestService(t, &fakeSource{grid: grid}, gen, Options{Concurrency: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	res, err := svc.Generate(ctx, "p")
	require.NoError(t, err)

	assert.Equal(t, 12, res.Rows)
	assert.NotEmpty(t, res.Fiches)
	require.NotEmpty(t, res.Failed)
	assert.Len(t, res.Failed, 12-len(res.Fiches))
	for _, f := range res.Failed {
		assert.Contains(t, f.Reason, "context deadline exceeded")
	}

	listed, err := st.ListFiches(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, len(res.Fiches))
	for i := range listed {
		assert.Equal(t, res.Fiches[i].ID, listed[i].ID, "position %d", i)
	}
	// No date column: the last sheet row is the most recent.
	assert.Equal(t, "Poste 11", listed[0].Title)
}

func TestService_Generate_SaveFailureReturnsPartialResult(t *testing.T) {
	st := &failingStore{Memory: store.NewMemory(), ok: 1}
	svc := NewService(&fakeSource{grid: testGrid}, st, &fakeGen{}, Options{Concurrency: 1})

	res, err := svc.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save fiche for line 5")
	assert.Contains(t, err.Error(), "disk full")

	require.NotNil(t, res)
	require.Len(t, res.Fiches, 1)
	assert.Equal(t, "Data Engineer", res.Fiches[0].Title)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, "Juriste", res.Failed[0].Title)
	assert.Equal(t, "disk full", res.Failed[0].Reason)
	assert.Equal(t, "Comptable", res.Failed[1].Title)
	assert.Equal(t, context.Canceled.Error(), res.Failed[1].Reason)

	listed, _ := st.ListFiches(context.Background())
	assert.Len(t, listed, 1)
}

func TestService_Fiche(t *testing.T) {
	svc, _ := newTestService(t, &fakeSource{grid: testGrid}, &fakeGen{}, Options{})
	res, err := svc.Generate(context.Background(), "p")
	require.NoError(t, err)

	got, err := svc.Fiche(context.Background(), res.Fiches[1].ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Juriste", got.Title)

	_, err = svc.Fiche(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = svc.Fiche(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_SourcingQueryAndCandidate(t *testing.T) {
	svc, st := newTestService(t, &fakeSource{grid: testGrid}, &fakeGen{}, Options{})
	ctx := context.Background()
	res, err := svc.Generate(ctx, "p")
	require.NoError(t, err)
	id := res.Fiches[0].ID.String()

	q, err := svc.SourcingQuery(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, `"Data Engineer" AND ("Paris")`, q.Content)
	assert.Equal(t, store.KindSourcingQuery, q.Kind)

	arts, err := st.ListArtifacts(ctx, res.Fiches[0].ID)
	require.NoError(t, err)
	assert.Len(t, arts, 1)

	c, err := svc.Candidate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, `"Data Engineer" AND ("Paris")`, c.SourcingQuery)
	assert.Nil(t, c.Outreach)

	_, err = svc.Outreach(ctx, id)
	require.NoError(t, err)

	c, err = svc.Candidate(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, c.Outreach)
	assert.Equal(t, "Bonjour, poste de Data Engineer", c.Outreach.Content)
	assert.Len(t, c.Artifacts, 2)

	arts, err = svc.Artifacts(ctx, id)
	require.NoError(t, err)
	require.Len(t, arts, 2)
	assert.Equal(t, store.KindOutreachEmail, arts[0].Kind)

	_, err = svc.Artifacts(ctx, "nope")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestService_Outreach_Error(t *testing.T) {
	gen := &fakeGen{outreach: func(string, string) (string, error) {
		return "", errors.New("status code: 429")
	}}
	svc, st := newTestService(t, &fakeSource{grid: testGrid}, gen, Options{})
	ctx := context.Background()
	res, err := svc.Generate(ctx, "p")
	require.NoError(t, err)

	_, err = svc.Outreach(ctx, res.Fiches[0].ID.String())
	require.Error(t, err)
	assert.Equal(t, "LLM002", MapError(err).Code)

	arts, _ := st.ListArtifacts(ctx, res.Fiches[0].ID)
	assert.Empty(t, arts)
}

func TestService_Outreach_EmptyIsNotStored(t *testing.T) {
	gen := &fakeGen{outreach: func(string, string) (string, error) {
		return "", fmt.Errorf("outreach: %w", generator.ErrEmptyCompletion)
	}}
	svc, st := newTestService(t, &fakeSource{grid: testGrid}, gen, Options{})
	ctx := context.Background()
	res, err := svc.Generate(ctx, "p")
	require.NoError(t, err)

	_, err = svc.Outreach(ctx, res.Fiches[0].ID.String())
	require.ErrorIs(t, err, generator.ErrEmptyCompletion)
	assert.Equal(t, "LLM003", MapError(err).Code)

	arts, _ := st.ListArtifacts(ctx, res.Fiches[0].ID)
	assert.Empty(t, arts)
}

func TestService_ExportCSV(t *testing.T) {
	svc, _ := newTestService(t, &fakeSource{grid: testGrid}, &fakeGen{}, Options{})
	ctx := context.Background()
	res, err := svc.Generate(ctx, "p")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, res.Fiches[0].ID.String(), records[1][0])
	assert.Equal(t, "Data Engineer", records[1][1])
	assert.Equal(t, "Paris", records[1][2])
	assert.Equal(t, "55k", records[1][3])
	assert.Equal(t, "3", records[1][4])
	assert.Equal(t, "Fiche: Data Engineer", records[1][6])
}
